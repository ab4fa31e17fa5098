package journal

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"time"

	bolt "go.etcd.io/bbolt"

	"crp/core/types"
)

var (
	bucketRecords = []byte("records")

	// ErrClosed is returned when the journal has been shut down.
	ErrClosed = errors.New("journal: store closed")
)

// Record is a single durable audit entry. Records are strictly ordered by the
// monotonically increasing sequence number assigned on append.
type Record struct {
	Seq        uint64            `json:"seq"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Journal persists the ordered audit trail of every state-mutating operation.
type Journal struct {
	db    *bolt.DB
	nowFn func() time.Time
}

// Open initialises the BoltDB-backed journal at the given path.
func Open(path string, options *bolt.Options) (*Journal, error) {
	if options == nil {
		options = &bolt.Options{Timeout: time.Second}
	} else if options.Timeout == 0 {
		options.Timeout = time.Second
	}
	db, err := bolt.Open(path, 0o600, options)
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRecords)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Journal{db: db, nowFn: func() time.Time { return time.Now().UTC() }}, nil
}

// SetNowFunc overrides the timestamp source. Nil restores the UTC clock.
func (j *Journal) SetNowFunc(now func() time.Time) {
	if now == nil {
		j.nowFn = func() time.Time { return time.Now().UTC() }
		return
	}
	j.nowFn = now
}

// Close releases the underlying database handle.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Append persists the event under the next sequence number and returns it.
func (j *Journal) Append(evt *types.Event) (uint64, error) {
	if j == nil || j.db == nil {
		return 0, ErrClosed
	}
	if evt == nil {
		return 0, errors.New("journal: nil event")
	}
	var seq uint64
	err := j.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketRecords)
		next, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		record := Record{
			Seq:        next,
			Type:       evt.Type,
			Attributes: evt.Attributes,
			Timestamp:  j.nowFn(),
		}
		payload, err := json.Marshal(record)
		if err != nil {
			return err
		}
		if err := bucket.Put(seqKey(next), payload); err != nil {
			return err
		}
		seq = next
		return nil
	})
	if err != nil {
		return 0, err
	}
	return seq, nil
}

// Range returns records with from <= seq <= to in ascending order. A zero `to`
// means "until the latest record".
func (j *Journal) Range(from, to uint64) ([]Record, error) {
	if j == nil || j.db == nil {
		return nil, ErrClosed
	}
	if from == 0 {
		from = 1
	}
	var records []Record
	err := j.db.View(func(tx *bolt.Tx) error {
		cursor := tx.Bucket(bucketRecords).Cursor()
		for k, v := cursor.Seek(seqKey(from)); k != nil; k, v = cursor.Next() {
			seq := binary.BigEndian.Uint64(k)
			if to != 0 && seq > to {
				break
			}
			var record Record
			if err := json.Unmarshal(v, &record); err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Tail returns the most recent n records in ascending sequence order.
func (j *Journal) Tail(n int) ([]Record, error) {
	if j == nil || j.db == nil {
		return nil, ErrClosed
	}
	if n <= 0 {
		return nil, nil
	}
	var records []Record
	err := j.db.View(func(tx *bolt.Tx) error {
		cursor := tx.Bucket(bucketRecords).Cursor()
		for k, v := cursor.Last(); k != nil && len(records) < n; k, v = cursor.Prev() {
			var record Record
			if err := json.Unmarshal(v, &record); err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Reverse into ascending order.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

func seqKey(seq uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, seq)
	return buf
}
