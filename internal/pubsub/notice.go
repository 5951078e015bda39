package pubsub

//go:generate msgp

// CrossProcessNotice is the envelope exchanged over the shared Redis pubsub
// backend between base-station processes: hangtime circuit invalidation and
// fragment-chain eviction notices, keyed by Kind. Kept msgpack-encoded
// rather than JSON since this one crosses the wire each time a circuit
// enters hangtime or its hangtime expires.
type CrossProcessNotice struct {
	Kind      string `msg:"kind"`
	GSSI      uint32 `msg:"gssi"`
	CallID    uint16 `msg:"call_id"`
	Timeslot  uint8  `msg:"timeslot"`
	SinceUnix int64  `msg:"since_unix"`
}

// Notice kinds carried in CrossProcessNotice.Kind. CMCE and Station publish
// them to the single notice topic they are configured with.
const (
	NoticeHangtimeStarted = "hangtime_started"
	NoticeHangtimeExpired = "hangtime_expired"
	NoticeFragmentEvicted = "fragment_evicted"
)

// PublishNotice msgpack-encodes n and publishes it to topic.
func PublishNotice(ps PubSub, topic string, n CrossProcessNotice) error {
	data, err := n.MarshalMsg(nil)
	if err != nil {
		return err
	}
	return ps.Publish(topic, data)
}

// DecodeNotice decodes a message received off a Subscription's channel.
func DecodeNotice(data []byte) (CrossProcessNotice, error) {
	var n CrossProcessNotice
	_, err := n.UnmarshalMsg(data)
	return n, err
}
