package vtline

import "slices"

// KeyHandler is bound to a key or key sequence. HandleKey reports whether
// it consumed the key; when it did not, the editor applies its default
// handling to the last key of the sequence.
type KeyHandler interface {
	HandleKey(editor *Editor) bool
}

type KeyHandlerFunc func(editor *Editor) bool

func (f KeyHandlerFunc) HandleKey(editor *Editor) bool {
	return f(editor)
}

type keyBinding struct {
	keys    []Key
	handler KeyHandler
}

// keyCallbackMachine matches incoming keys against the bound sequences.
// Keys are captured while they are a prefix of some binding; once the
// sequence can no longer match, the captured keys are handed back.
type keyCallbackMachine struct {
	bindings []keyBinding
	captured []Key
}

func (k *keyCallbackMachine) registerInputCallback(keys []Key, handler KeyHandler) {
	if len(keys) == 0 || handler == nil {
		return
	}
	if i := k.findMatchingKeysIndex(keys); i >= 0 {
		k.bindings[i].handler = handler
		return
	}
	k.bindings = append(k.bindings, keyBinding{keys: slices.Clone(keys), handler: handler})
}

// registerDefault binds keys unless something is bound to them already.
func (k *keyCallbackMachine) registerDefault(keys []Key, handler KeyHandler) {
	if k.findMatchingKeysIndex(keys) >= 0 {
		return
	}
	k.registerInputCallback(keys, handler)
}

func (k *keyCallbackMachine) findMatchingKeysIndex(keys []Key) int {
	return slices.IndexFunc(k.bindings, func(b keyBinding) bool {
		return slices.Equal(b.keys, keys)
	})
}

// keyPressed feeds one key. fallback receives every key that ends up not
// consumed by a binding, in order.
func (k *keyCallbackMachine) keyPressed(key Key, editor *Editor, fallback func(Key)) {
	k.captured = append(k.captured, key)

	var candidates []int
	for i, binding := range k.bindings {
		if len(binding.keys) >= len(k.captured) && slices.Equal(binding.keys[:len(k.captured)], k.captured) {
			candidates = append(candidates, i)
		}
	}

	if len(candidates) == 0 {
		// The first captured key can't start anything; the rest may.
		pending := k.captured
		k.captured = nil
		fallback(pending[0])
		for _, next := range pending[1:] {
			k.keyPressed(next, editor, fallback)
		}
		return
	}

	for _, i := range candidates {
		if len(k.bindings[i].keys) == len(k.captured) {
			k.captured = nil
			if !k.bindings[i].handler.HandleKey(editor) {
				fallback(key)
			}
			return
		}
	}
}

func (k *keyCallbackMachine) reset() {
	k.captured = nil
}

// interrupted drops any partial sequence and gives a ^C binding the chance
// to consume the interrupt. It reports whether the interrupt still applies.
func (k *keyCallbackMachine) interrupted(editor *Editor) bool {
	k.captured = nil
	if i := k.findMatchingKeysIndex([]Key{CtrlKey('C')}); i >= 0 {
		return !k.bindings[i].handler.HandleKey(editor)
	}
	return true
}
