package pubsub

import "github.com/tinylib/msgp/msgp"

const crossProcessNoticeFieldCount = 5

// MarshalMsg implements msgp.Marshaler.
func (z CrossProcessNotice) MarshalMsg(b []byte) ([]byte, error) {
	o := msgp.AppendMapHeader(b, crossProcessNoticeFieldCount)
	o = msgp.AppendString(o, "kind")
	o = msgp.AppendString(o, z.Kind)
	o = msgp.AppendString(o, "gssi")
	o = msgp.AppendUint32(o, z.GSSI)
	o = msgp.AppendString(o, "call_id")
	o = msgp.AppendUint16(o, z.CallID)
	o = msgp.AppendString(o, "timeslot")
	o = msgp.AppendUint8(o, z.Timeslot)
	o = msgp.AppendString(o, "since_unix")
	o = msgp.AppendInt64(o, z.SinceUnix)
	return o, nil
}

// UnmarshalMsg implements msgp.Unmarshaler.
func (z *CrossProcessNotice) UnmarshalMsg(b []byte) ([]byte, error) {
	sz, o, err := msgp.ReadMapHeaderBytes(b)
	if err != nil {
		return b, err
	}
	for i := uint32(0); i < sz; i++ {
		var field string
		field, o, err = msgp.ReadStringBytes(o)
		if err != nil {
			return o, err
		}
		switch field {
		case "kind":
			z.Kind, o, err = msgp.ReadStringBytes(o)
		case "gssi":
			z.GSSI, o, err = msgp.ReadUint32Bytes(o)
		case "call_id":
			z.CallID, o, err = msgp.ReadUint16Bytes(o)
		case "timeslot":
			z.Timeslot, o, err = msgp.ReadUint8Bytes(o)
		case "since_unix":
			z.SinceUnix, o, err = msgp.ReadInt64Bytes(o)
		default:
			o, err = msgp.Skip(o)
		}
		if err != nil {
			return o, err
		}
	}
	return o, nil
}
