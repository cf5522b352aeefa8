package store

import bolt "go.etcd.io/bbolt"

var (
	keyOwner   = []byte("owner")
	keyContent = []byte("content")
	keyHasPID  = []byte("has_pid")
)

// The correlation counter is kept as the bucket sequence.
func marshalSession(b *bolt.Bucket, sess Session) error {
	if err := b.Put(keyOwner, []byte(sess.Owner)); err != nil {
		return err
	}
	if err := b.Put(keyContent, []byte(sess.Content)); err != nil {
		return err
	}
	hasPID := []byte{0}
	if sess.HasPID {
		hasPID[0] = 1
	}
	if err := b.Put(keyHasPID, hasPID); err != nil {
		return err
	}
	return b.SetSequence(uint64(sess.PID))
}

func unmarshalSession(b *bolt.Bucket) *Session {
	hasPID := b.Get(keyHasPID)
	return &Session{
		Owner:   string(b.Get(keyOwner)),
		Content: string(b.Get(keyContent)),
		PID:     int(b.Sequence()),
		HasPID:  len(hasPID) == 1 && hasPID[0] == 1,
	}
}
