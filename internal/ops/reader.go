// SPDX-License-Identifier: Unlicense OR MIT

package ops

// Reader parses a serialized command list.
type Reader struct {
	pc  pc
	ops *Ops
}

// EncodedOp represents an encoded command returned by Reader.
type EncodedOp struct {
	Key  Key
	Data []byte
	Refs []interface{}
}

// Key is a unique key for a given command.
type Key struct {
	ops     *Ops
	pc      int
	version int
}

type pc struct {
	data int
	refs int
}

// Reset starts reading from the beginning of ops.
func (r *Reader) Reset(ops *Ops) {
	r.pc = pc{}
	r.ops = ops
}

// Decode returns the next command, or false at the end of the list.
func (r *Reader) Decode() (EncodedOp, bool) {
	if r.ops == nil {
		return EncodedOp{}, false
	}
	data := r.ops.Data()
	data = data[r.pc.data:]
	if len(data) == 0 {
		return EncodedOp{}, false
	}
	key := Key{ops: r.ops, pc: r.pc.data, version: r.ops.Version()}
	t := OpType(data[0])
	n := t.Size()
	nrefs := t.NumRefs()
	if t == TypeGlyphs {
		// The glyph vertices trail the fixed prefix.
		nverts := int(DecodeUint32(data[5:]))
		n += nverts * GlyphVertexLen
	}
	data = data[:n]
	refs := r.ops.Refs()
	refs = refs[r.pc.refs:]
	refs = refs[:nrefs]
	r.pc.data += n
	r.pc.refs += nrefs
	return EncodedOp{Key: key, Data: data, Refs: refs}, true
}
