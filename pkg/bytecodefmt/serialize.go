package bytecodefmt

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/agenthands/bilex/pkg/value"
)

const (
	magic          = "UABC"
	containerVersion uint16 = 1

	tagNone     = 0
	tagInt      = 1
	tagFloat    = 2
	tagString   = 3
	tagBool     = 4
	tagFunction = 5
	tagClass    = 6
)

// LinkError reports a bytecode container that failed to deserialize: a
// magic/version mismatch or an unknown constant tag (spec.md §7).
type LinkError struct {
	Msg string
}

func (e *LinkError) Error() string { return "link error: " + e.Msg }

// Serialize encodes a Module into the container format of spec.md §6
// (little-endian multi-byte numerics, length-prefixed UTF-8 strings, fixed
// 5-byte instructions) with one addition: a u32 MainLocalCount written
// immediately before the main code's length.
func Serialize(m *Module) ([]byte, error) {
	var buf bytes.Buffer
	writeLPString(&buf, magic)
	writeU16(&buf, containerVersion)

	writeU32(&buf, uint32(len(m.Constants)))
	for _, c := range m.Constants {
		if err := writeConstant(&buf, c); err != nil {
			return nil, err
		}
	}

	writeU32(&buf, uint32(len(m.Globals)))
	for _, g := range m.Globals {
		writeLPString(&buf, g)
	}

	writeU32(&buf, uint32(len(m.Functions)))
	for _, fn := range m.Functions {
		writeFunction(&buf, fn)
	}

	writeU32(&buf, uint32(m.MainLocalCount))
	writeU32(&buf, uint32(len(m.MainCode)))
	for _, ins := range m.MainCode {
		writeInstruction(&buf, ins)
	}

	return buf.Bytes(), nil
}

func writeU8(buf *bytes.Buffer, v uint8)   { buf.WriteByte(v) }
func writeU16(buf *bytes.Buffer, v uint16) { var b [2]byte; binary.LittleEndian.PutUint16(b[:], v); buf.Write(b[:]) }
func writeU32(buf *bytes.Buffer, v uint32) { var b [4]byte; binary.LittleEndian.PutUint32(b[:], v); buf.Write(b[:]) }
func writeF64(buf *bytes.Buffer, v float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	buf.Write(b[:])
}

func writeLPString(buf *bytes.Buffer, s string) {
	writeU32(buf, uint32(len(s)))
	buf.WriteString(s)
}

func writeInstruction(buf *bytes.Buffer, ins value.Instruction) {
	writeU8(buf, ins.Op)
	writeU32(buf, ins.Arg)
}

func writeFunction(buf *bytes.Buffer, fn *value.Function) {
	writeLPString(buf, fn.Name)
	writeU32(buf, uint32(fn.Arity))
	writeU32(buf, uint32(fn.LocalCount))
	writeU32(buf, uint32(len(fn.Upvalues)))
	for _, uv := range fn.Upvalues {
		isLocal := uint8(0)
		if uv.IsLocal {
			isLocal = 1
		}
		writeU8(buf, isLocal)
		writeU32(buf, uint32(uv.ParentIndex))
	}
	writeU32(buf, uint32(len(fn.Code)))
	for _, ins := range fn.Code {
		writeInstruction(buf, ins)
	}
}

func writeConstant(buf *bytes.Buffer, v value.Value) error {
	switch v.Kind {
	case value.KindNone:
		writeU8(buf, tagNone)
	case value.KindInt:
		writeU8(buf, tagInt)
		writeF64(buf, float64(v.Int))
	case value.KindFloat:
		writeU8(buf, tagFloat)
		writeF64(buf, v.Float)
	case value.KindString:
		writeU8(buf, tagString)
		writeLPString(buf, v.Str)
	case value.KindBool:
		writeU8(buf, tagBool)
		b := uint8(0)
		if v.Bool {
			b = 1
		}
		writeU8(buf, b)
	case value.KindFunction:
		writeU8(buf, tagFunction)
		writeFunction(buf, v.Obj.(*value.Function))
	case value.KindClass:
		writeU8(buf, tagClass)
		cls := v.Obj.(*value.Class)
		writeLPString(buf, cls.Name)
		writeU32(buf, uint32(len(cls.Fields)))
		for _, f := range cls.Fields {
			writeLPString(buf, f)
		}
		writeU32(buf, uint32(len(cls.Methods)))
		for name, method := range cls.Methods {
			writeLPString(buf, name)
			writeFunction(buf, method)
		}
	default:
		return fmt.Errorf("bytecodefmt: constant kind %v is not serializable", v.Kind)
	}
	return nil
}

// Deserialize decodes a container produced by Serialize, or returns a
// LinkError on magic/version mismatch or an unknown constant tag.
func Deserialize(data []byte) (*Module, error) {
	r := &reader{data: data}

	mg, err := r.readLPString()
	if err != nil {
		return nil, &LinkError{Msg: err.Error()}
	}
	if mg != magic {
		return nil, &LinkError{Msg: fmt.Sprintf("bad magic %q, want %q", mg, magic)}
	}
	ver, err := r.readU16()
	if err != nil {
		return nil, &LinkError{Msg: err.Error()}
	}
	if ver != containerVersion {
		return nil, &LinkError{Msg: fmt.Sprintf("unsupported version %d", ver)}
	}

	m := &Module{}

	constCount, err := r.readU32()
	if err != nil {
		return nil, &LinkError{Msg: err.Error()}
	}
	for i := uint32(0); i < constCount; i++ {
		c, err := r.readConstant()
		if err != nil {
			return nil, err
		}
		m.Constants = append(m.Constants, c)
	}

	globalCount, err := r.readU32()
	if err != nil {
		return nil, &LinkError{Msg: err.Error()}
	}
	for i := uint32(0); i < globalCount; i++ {
		g, err := r.readLPString()
		if err != nil {
			return nil, &LinkError{Msg: err.Error()}
		}
		m.Globals = append(m.Globals, g)
	}

	funcCount, err := r.readU32()
	if err != nil {
		return nil, &LinkError{Msg: err.Error()}
	}
	for i := uint32(0); i < funcCount; i++ {
		fn, err := r.readFunction()
		if err != nil {
			return nil, err
		}
		m.Functions = append(m.Functions, fn)
	}

	mainLocalCount, err := r.readU32()
	if err != nil {
		return nil, &LinkError{Msg: err.Error()}
	}
	m.MainLocalCount = int(mainLocalCount)

	mainLen, err := r.readU32()
	if err != nil {
		return nil, &LinkError{Msg: err.Error()}
	}
	for i := uint32(0); i < mainLen; i++ {
		ins, err := r.readInstruction()
		if err != nil {
			return nil, &LinkError{Msg: err.Error()}
		}
		m.MainCode = append(m.MainCode, ins)
	}

	return m, nil
}

type reader struct {
	data []byte
	pos  int
}

func (r *reader) need(n int) error {
	if r.pos+n > len(r.data) {
		return fmt.Errorf("unexpected end of bytecode container")
	}
	return nil
}

func (r *reader) readU8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.data[r.pos]
	r.pos++
	return v, nil
}

func (r *reader) readU16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *reader) readU32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) readF64() (float64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	bits := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return math.Float64frombits(bits), nil
}

func (r *reader) readLPString() (string, error) {
	n, err := r.readU32()
	if err != nil {
		return "", err
	}
	if err := r.need(int(n)); err != nil {
		return "", err
	}
	s := string(r.data[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}

func (r *reader) readInstruction() (value.Instruction, error) {
	op, err := r.readU8()
	if err != nil {
		return value.Instruction{}, err
	}
	arg, err := r.readU32()
	if err != nil {
		return value.Instruction{}, err
	}
	return value.Instruction{Op: op, Arg: arg}, nil
}

func (r *reader) readFunction() (*value.Function, error) {
	name, err := r.readLPString()
	if err != nil {
		return nil, &LinkError{Msg: err.Error()}
	}
	arity, err := r.readU32()
	if err != nil {
		return nil, &LinkError{Msg: err.Error()}
	}
	localCount, err := r.readU32()
	if err != nil {
		return nil, &LinkError{Msg: err.Error()}
	}
	upCount, err := r.readU32()
	if err != nil {
		return nil, &LinkError{Msg: err.Error()}
	}
	fn := &value.Function{Name: name, Arity: int(arity), LocalCount: int(localCount)}
	for i := uint32(0); i < upCount; i++ {
		isLocal, err := r.readU8()
		if err != nil {
			return nil, &LinkError{Msg: err.Error()}
		}
		parent, err := r.readU32()
		if err != nil {
			return nil, &LinkError{Msg: err.Error()}
		}
		fn.Upvalues = append(fn.Upvalues, value.UpvalueDesc{IsLocal: isLocal != 0, ParentIndex: int(parent)})
	}
	codeLen, err := r.readU32()
	if err != nil {
		return nil, &LinkError{Msg: err.Error()}
	}
	for i := uint32(0); i < codeLen; i++ {
		ins, err := r.readInstruction()
		if err != nil {
			return nil, &LinkError{Msg: err.Error()}
		}
		fn.Code = append(fn.Code, ins)
	}
	return fn, nil
}

func (r *reader) readConstant() (value.Value, error) {
	tag, err := r.readU8()
	if err != nil {
		return value.Value{}, &LinkError{Msg: err.Error()}
	}
	switch tag {
	case tagNone:
		return value.None(), nil
	case tagInt:
		f, err := r.readF64()
		if err != nil {
			return value.Value{}, &LinkError{Msg: err.Error()}
		}
		return value.Int(int64(f)), nil
	case tagFloat:
		f, err := r.readF64()
		if err != nil {
			return value.Value{}, &LinkError{Msg: err.Error()}
		}
		return value.Float64(f), nil
	case tagString:
		s, err := r.readLPString()
		if err != nil {
			return value.Value{}, &LinkError{Msg: err.Error()}
		}
		return value.Str(s), nil
	case tagBool:
		b, err := r.readU8()
		if err != nil {
			return value.Value{}, &LinkError{Msg: err.Error()}
		}
		return value.Bool(b != 0), nil
	case tagFunction:
		fn, err := r.readFunction()
		if err != nil {
			return value.Value{}, err
		}
		return value.Value{Kind: value.KindFunction, Obj: fn}, nil
	case tagClass:
		name, err := r.readLPString()
		if err != nil {
			return value.Value{}, &LinkError{Msg: err.Error()}
		}
		fieldCount, err := r.readU32()
		if err != nil {
			return value.Value{}, &LinkError{Msg: err.Error()}
		}
		cls := &value.Class{Name: name, Methods: make(map[string]*value.Function)}
		for i := uint32(0); i < fieldCount; i++ {
			f, err := r.readLPString()
			if err != nil {
				return value.Value{}, &LinkError{Msg: err.Error()}
			}
			cls.Fields = append(cls.Fields, f)
		}
		methodCount, err := r.readU32()
		if err != nil {
			return value.Value{}, &LinkError{Msg: err.Error()}
		}
		for i := uint32(0); i < methodCount; i++ {
			mname, err := r.readLPString()
			if err != nil {
				return value.Value{}, &LinkError{Msg: err.Error()}
			}
			mfn, err := r.readFunction()
			if err != nil {
				return value.Value{}, err
			}
			cls.Methods[mname] = mfn
		}
		return value.Value{Kind: value.KindClass, Obj: cls}, nil
	default:
		return value.Value{}, &LinkError{Msg: fmt.Sprintf("unknown constant tag %d", tag)}
	}
}
