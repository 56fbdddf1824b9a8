package ajarin

import (
	"time"

	bolt "go.etcd.io/bbolt"
)

// credentialsBucket is the single bucket BoltStore keeps its keys in.
var credentialsBucket = []byte("credentials")

// BoltStore is a durable KeyValueStore backed by a bbolt file, so stored
// tokens survive process restarts.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens (creating if needed) the bbolt file at path and
// ensures the credentials bucket exists.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(credentialsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

// Get returns the stored value, or "" when absent.
func (b *BoltStore) Get(key string) (string, error) {
	var value string
	err := b.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(credentialsBucket).Get([]byte(key)); v != nil {
			value = string(v)
		}
		return nil
	})
	return value, err
}

// Set stores a value.
func (b *BoltStore) Set(key, value string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(credentialsBucket).Put([]byte(key), []byte(value))
	})
}

// Delete removes a value.
func (b *BoltStore) Delete(key string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(credentialsBucket).Delete([]byte(key))
	})
}

// Close releases the underlying bbolt file.
func (b *BoltStore) Close() error {
	return b.db.Close()
}
