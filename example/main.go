//go:build linux || darwin
// +build linux darwin

package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/alimpfard/vtline"
	"go.uber.org/zap"
)

var commands = []string{"clear", "echo", "exit", "help", "history"}

func main() {
	historyPath := flag.String("history", "", "load history from and save it to this file")
	logPath := flag.String("log", "", "write debug logs to this file")
	flag.Parse()

	logger := zap.NewNop()
	if *logPath != "" {
		cfg := zap.NewDevelopmentConfig()
		cfg.OutputPaths = []string{*logPath}
		cfg.ErrorOutputPaths = []string{*logPath}
		l, err := cfg.Build()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		logger = l
	}
	defer func() {
		_ = logger.Sync()
	}()

	terminal, err := vtline.NewTerminal(os.Stdin, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	config := vtline.DefaultConfiguration()
	config.Terminal = terminal
	config.Logger = logger
	config.FirstTokenCompleter = vtline.CompletionProviderFunc(completeCommand)
	config.OtherTokenCompleter = vtline.CompletionProviderFunc(completePath)
	editor := vtline.NewEditor(config)
	editor.SetRefreshHandler(highlight)

	if *historyPath != "" {
		if err := loadHistory(editor, *historyPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("could not load history", zap.String("path", *historyPath), zap.Error(err))
		}
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGWINCH)
	defer signal.Stop(signals)
	go func() {
		for sig := range signals {
			if sig == syscall.SIGWINCH {
				editor.NotifyResized()
			} else {
				editor.NotifyInterrupted()
			}
		}
	}()

	for {
		line, err := editor.GetLine("\x1b[32mvtline\x1b[0m> ")
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			break
		}
		if editor.WasInterrupted() {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "exit":
			saveHistory(editor, *historyPath, logger)
			return
		case "echo":
			fmt.Println(strings.Join(fields[1:], " "))
		case "clear":
			fmt.Print("\x1b[3J\x1b[H\x1b[2J")
		case "history":
			for i, entry := range editor.History() {
				fmt.Printf("%4d  %s\n", i+1, entry)
			}
		case "help":
			fmt.Println("commands:", strings.Join(commands, ", "))
		default:
			fmt.Printf("%s: unknown command\n", fields[0])
		}
	}

	saveHistory(editor, *historyPath, logger)
}

func completeCommand(token string) ([]string, error) {
	var candidates []string
	for _, command := range commands {
		if strings.HasPrefix(command, token) {
			candidates = append(candidates, command)
		}
	}
	return candidates, nil
}

func completePath(token string) ([]string, error) {
	matches, err := filepath.Glob(token + "*")
	if err != nil {
		return nil, err
	}
	for i, match := range matches {
		if info, err := os.Stat(match); err == nil && info.IsDir() {
			matches[i] = match + string(filepath.Separator)
		}
	}
	return matches, nil
}

// highlight shows known commands in bold green and unknown ones in red.
func highlight(editor *vtline.Editor) {
	editor.StripStyles()

	line := editor.Line()
	start := len(line) - len(strings.TrimLeft(line, " "))
	end := start + strings.IndexByte(line[start:]+" ", ' ')
	if start == end {
		return
	}

	style := vtline.Style{ForegroundColor: vtline.MakeXtermColor(vtline.XtermColorRed)}
	if slices.Contains(commands, line[start:end]) {
		style = vtline.Style{ForegroundColor: vtline.MakeXtermColor(vtline.XtermColorGreen), Bold: true}
	}
	editor.Stylize(vtline.Span{Start: start, End: end, Mode: vtline.SpanModeByte}, style)
}

func loadHistory(editor *vtline.Editor, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			editor.AddToHistory(line)
		}
	}
	return scanner.Err()
}

func saveHistory(editor *vtline.Editor, path string, logger *zap.Logger) {
	if path == "" {
		return
	}
	entries := editor.History()
	if len(entries) == 0 {
		return
	}
	if err := os.WriteFile(path, []byte(strings.Join(entries, "\n")+"\n"), 0o600); err != nil {
		logger.Warn("could not save history", zap.String("path", path), zap.Error(err))
	}
}
