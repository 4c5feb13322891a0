// Package dynamic encodes and decodes messages of a compiled schema without
// generating code. Its encoding follows the generated codecs exactly.
package dynamic

import (
	"fmt"

	"github.com/jptrs93/pbgen/internal/ir"
)

// Registry indexes the enums and messages of a set of compiled files and of
// everything they import, by full name.
type Registry struct {
	messages map[string]*ir.Message
	enums    map[string]*ir.Enum
}

func NewRegistry(files ...*ir.File) *Registry {
	r := &Registry{
		messages: make(map[string]*ir.Message),
		enums:    make(map[string]*ir.Enum),
	}
	seen := make(map[*ir.File]bool)
	var addFile func(file *ir.File)
	addFile = func(file *ir.File) {
		if seen[file] {
			return
		}
		seen[file] = true
		for _, e := range file.Enums {
			r.enums[e.FullName()] = e
		}
		for _, msg := range file.Messages {
			r.addMessage(msg)
		}
		for _, imp := range file.Imports {
			if imp.File != nil {
				addFile(imp.File)
			}
		}
	}
	for _, file := range files {
		addFile(file)
	}
	return r
}

func (r *Registry) addMessage(msg *ir.Message) {
	r.messages[msg.FullName()] = msg
	for _, e := range msg.Enums {
		r.enums[e.FullName()] = e
	}
	for _, sub := range msg.Messages {
		r.addMessage(sub)
	}
}

func (r *Registry) Message(fullName string) (*ir.Message, bool) {
	msg, ok := r.messages[fullName]
	return msg, ok
}

func (r *Registry) Enum(fullName string) (*ir.Enum, bool) {
	e, ok := r.enums[fullName]
	return e, ok
}

// New returns an empty message of the named type.
func (r *Registry) New(fullName string) (*Message, error) {
	desc, ok := r.messages[fullName]
	if !ok {
		return nil, fmt.Errorf("unknown message type '%s'", fullName)
	}
	return r.newMessage(desc), nil
}

func (r *Registry) newMessage(desc *ir.Message) *Message {
	return &Message{reg: r, desc: desc, values: make(map[int]any)}
}

func (r *Registry) fieldMessage(f *ir.Field) (*ir.Message, error) {
	desc, ok := r.messages[f.FullType()]
	if !ok {
		return nil, fmt.Errorf("field '%s': unknown message type '%s'", f.Name, f.FullType())
	}
	return desc, nil
}
