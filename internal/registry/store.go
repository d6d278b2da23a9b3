package registry

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/kclarke-dev/ringwatch/internal/host"
)

var bucketHosts = []byte("hosts")

// record is the JSON-serializable on-disk form of a host.Host. UUIDs
// marshal as their string form so the bucket stays human-inspectable,
// the same choice the teacher's store package makes for its own records.
type record struct {
	IP             string `json:"ip"`
	DataCenter     string `json:"data_center"`
	Rack           string `json:"rack"`
	ID             string `json:"id"`
	ReleaseVersion string `json:"release_version"`
}

func toRecord(h host.Host) record {
	return record{
		IP:             h.IP,
		DataCenter:     h.DataCenter,
		Rack:           h.Rack,
		ID:             h.ID.String(),
		ReleaseVersion: h.ReleaseVersion,
	}
}

func (rec record) toHost() (host.Host, error) {
	id, err := host.ParseID(rec.ID)
	if err != nil {
		return host.Host{}, fmt.Errorf("parse stored host id %q: %w", rec.ID, err)
	}
	return host.New(rec.IP, rec.DataCenter, rec.Rack, id, rec.ReleaseVersion), nil
}

// BoltStore persists discovered hosts in a BoltDB file, the same pattern
// the teacher's internal/store package uses for its other records.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore creates or opens a BoltDB database at path and ensures the
// hosts bucket exists.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketHosts)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create hosts bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close releases the underlying BoltDB handle.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Load returns every persisted host.
func (s *BoltStore) Load() ([]host.Host, error) {
	var out []host.Host
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketHosts)
		return b.ForEach(func(k, v []byte) error {
			var rec record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("unmarshal host record %s: %w", k, err)
			}
			h, err := rec.toHost()
			if err != nil {
				return err
			}
			out = append(out, h)
			return nil
		})
	})
	return out, err
}

// Save writes (or overwrites) the persisted record for h.IP.
func (s *BoltStore) Save(h host.Host) error {
	data, err := json.Marshal(toRecord(h))
	if err != nil {
		return fmt.Errorf("marshal host record: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketHosts).Put([]byte(h.IP), data)
	})
}

// Delete removes the persisted record for ip, if any.
func (s *BoltStore) Delete(ip string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketHosts).Delete([]byte(ip))
	})
}
