package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/google/uuid"
)

// Badger db implementation
type Badger struct {
	db       *badger.DB
	cancelGC func()
	wg       sync.WaitGroup
}

// NewBadger creates a new badger instance for the given path
func NewBadger(dbPath string) (*Badger, error) {
	db, err := badger.Open(badger.DefaultOptions(dbPath).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db at path %s: %w", dbPath, err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	b := &Badger{
		db:       db,
		cancelGC: cancel,
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				for b.db.RunValueLogGC(0.5) == nil && ctx.Err() == nil {
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	return b, nil
}

// Close the database
func (b *Badger) Close() error {
	b.cancelGC()
	b.wg.Wait()

	return b.db.Close()
}

// AddUser to the database
func (b *Badger) AddUser(user *User) error {
	return b.db.Update(func(tx *badger.Txn) error {
		data, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("failed to JSON marshal user: %w", err)
		}

		key := user.badgerKey()
		if _, err = tx.Get(key); err == nil {
			return fmt.Errorf("user %s already exists", user.Name)
		}

		return tx.Set(key, data)
	})
}

// GetUser from the database; nil without error when the username is unknown
func (b *Badger) GetUser(username string) (user *User, err error) {
	err = b.db.View(func(tx *badger.Txn) error {
		item, err := tx.Get(badgerKeyForUsername(username))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("failed to get user value for username %s: %w", username, err)
		}

		user = &User{}

		return item.Value(func(val []byte) error {
			err = json.Unmarshal(val, user)
			if err != nil {
				return fmt.Errorf("failed to unmarshal user value for username %s: %w", username, err)
			}

			return nil
		})
	})

	return
}

// ListUsers from the database
func (b *Badger) ListUsers() (users []*User, err error) {
	err = b.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("user:")

		it := tx.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()

			err := item.Value(func(val []byte) error {
				user := &User{}
				err := json.Unmarshal(val, user)
				if err != nil {
					return fmt.Errorf("failed to unmarshal user value for user key %s: %w", string(item.Key()), err)
				}

				users = append(users, user)

				return nil
			})

			if err != nil {
				return err
			}
		}

		return nil
	})

	return
}

// AddMedication to the database
func (b *Badger) AddMedication(medication *Medication) error {
	return b.db.Update(func(tx *badger.Txn) error {
		data, err := json.Marshal(medication)
		if err != nil {
			return fmt.Errorf("failed to JSON marshal medication: %w", err)
		}

		return tx.Set(medication.badgerKey(), data)
	})
}

// UpdateMedication overwrites an existing medication's dosing rule
func (b *Badger) UpdateMedication(medication *Medication) error {
	return b.db.Update(func(tx *badger.Txn) error {
		key := medication.badgerKey()
		if _, err := tx.Get(key); err != nil {
			return fmt.Errorf("failed to find medication %s to update: %w", medication.ID, err)
		}

		data, err := json.Marshal(medication)
		if err != nil {
			return fmt.Errorf("failed to JSON marshal medication: %w", err)
		}

		return tx.Set(key, data)
	})
}

// GetMedication by owning user and medication id; nil without error when absent
func (b *Badger) GetMedication(userID uuid.UUID, medicationID uuid.UUID) (medication *Medication, err error) {
	err = b.db.View(func(tx *badger.Txn) error {
		item, err := tx.Get(badgerKeyForMedication(userID, medicationID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("failed to get medication %s: %w", medicationID, err)
		}

		medication = &Medication{}

		return item.Value(func(val []byte) error {
			err = json.Unmarshal(val, medication)
			if err != nil {
				return fmt.Errorf("failed to unmarshal medication %s: %w", medicationID, err)
			}

			return nil
		})
	})

	return
}

// RemoveMedication and all of its dose logs from the database
func (b *Badger) RemoveMedication(medication *Medication) error {
	err := b.DeleteDoseLogsForMedication(medication.ID)
	if err != nil {
		return fmt.Errorf("failed to cascade dose log delete for medication %s: %w", medication.ID, err)
	}

	return b.db.Update(func(tx *badger.Txn) error {
		return tx.Delete(medication.badgerKey())
	})
}

// ListMedicationsForUser from the database
func (b *Badger) ListMedicationsForUser(user *User) (medications []*Medication, err error) {
	err = b.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = badgerPrefixKeyForMedicationUser(user)

		it := tx.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()

			err := item.Value(func(val []byte) error {
				medication := &Medication{}
				err := json.Unmarshal(val, medication)
				if err != nil {
					return fmt.Errorf("failed to unmarshal medication value for medication key %s: %w", string(item.Key()), err)
				}

				medications = append(medications, medication)

				return nil
			})

			if err != nil {
				return err
			}
		}

		return nil
	})

	return
}

// InsertDoseLogIfAbsent stores the log unless its (medication, date, time)
// slot already has one. The slot check and the writes share one transaction,
// which is what makes repeated materialization passes safe.
func (b *Badger) InsertDoseLogIfAbsent(log *DoseLog) (inserted bool, err error) {
	err = b.db.Update(func(tx *badger.Txn) error {
		key := log.badgerKey()
		if _, err := tx.Get(key); err == nil {
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("failed to check dose log slot %s: %w", string(key), err)
		}

		data, err := json.Marshal(log)
		if err != nil {
			return fmt.Errorf("failed to JSON marshal dose log: %w", err)
		}

		err = tx.Set(key, data)
		if err != nil {
			return fmt.Errorf("failed to set dose log %s: %w", log.ID, err)
		}

		err = tx.Set(log.badgerIDKey(), key)
		if err != nil {
			return fmt.Errorf("failed to set dose log id index %s: %w", log.ID, err)
		}

		inserted = true

		return nil
	})

	return
}

// GetDoseLog by id through the id index; ErrDoseLogNotFound when absent
func (b *Badger) GetDoseLog(id uuid.UUID) (log *DoseLog, err error) {
	err = b.db.View(func(tx *badger.Txn) error {
		item, err := tx.Get(badgerKeyForDoseLogID(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("no dose log with id %s: %w", id, ErrDoseLogNotFound)
		}

		if err != nil {
			return fmt.Errorf("failed to get dose log id index %s: %w", id, err)
		}

		slotKey, err := item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("failed to read dose log id index %s: %w", id, err)
		}

		item, err = tx.Get(slotKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("dangling dose log id index %s: %w", id, ErrDoseLogNotFound)
		}

		if err != nil {
			return fmt.Errorf("failed to get dose log %s: %w", id, err)
		}

		log = &DoseLog{}

		return item.Value(func(val []byte) error {
			err = json.Unmarshal(val, log)
			if err != nil {
				return fmt.Errorf("failed to unmarshal dose log %s: %w", id, err)
			}

			return nil
		})
	})

	return
}

// UpdateDoseLog overwrites an existing log's value; the slot key never changes
func (b *Badger) UpdateDoseLog(log *DoseLog) error {
	return b.db.Update(func(tx *badger.Txn) error {
		key := log.badgerKey()
		if _, err := tx.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("no dose log in slot %s: %w", string(key), ErrDoseLogNotFound)
		} else if err != nil {
			return fmt.Errorf("failed to check dose log slot %s: %w", string(key), err)
		}

		data, err := json.Marshal(log)
		if err != nil {
			return fmt.Errorf("failed to JSON marshal dose log: %w", err)
		}

		return tx.Set(key, data)
	})
}

// ListDoseLogsForMedicationDate returns the medication's logs for one
// calendar date, ordered by scheduled time (the key encodes it)
func (b *Badger) ListDoseLogsForMedicationDate(medicationID uuid.UUID, date Date) ([]*DoseLog, error) {
	return b.listDoseLogs(badgerPrefixKeyForDoseLogMedicationDate(medicationID, date))
}

// ListDoseLogsForMedication returns all of the medication's logs ordered by
// date then time
func (b *Badger) ListDoseLogsForMedication(medicationID uuid.UUID) ([]*DoseLog, error) {
	return b.listDoseLogs(badgerPrefixKeyForDoseLogMedication(medicationID))
}

func (b *Badger) listDoseLogs(prefix []byte) (logs []*DoseLog, err error) {
	err = b.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := tx.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()

			err := item.Value(func(val []byte) error {
				log := &DoseLog{}
				err := json.Unmarshal(val, log)
				if err != nil {
					return fmt.Errorf("failed to unmarshal dose log value for key %s: %w", string(item.Key()), err)
				}

				logs = append(logs, log)

				return nil
			})

			if err != nil {
				return err
			}
		}

		return nil
	})

	return
}

// DeleteDoseLogsForMedication removes every log (and id index entry) the
// medication owns. This is the destructive half of a dosing-shape resync.
func (b *Badger) DeleteDoseLogsForMedication(medicationID uuid.UUID) error {
	logs, err := b.ListDoseLogsForMedication(medicationID)
	if err != nil {
		return fmt.Errorf("failed to list dose logs for medication %s: %w", medicationID, err)
	}

	return b.db.Update(func(tx *badger.Txn) error {
		for _, log := range logs {
			err := tx.Delete(log.badgerKey())
			if err != nil {
				return fmt.Errorf("failed to delete dose log %s: %w", log.ID, err)
			}

			err = tx.Delete(log.badgerIDKey())
			if err != nil {
				return fmt.Errorf("failed to delete dose log id index %s: %w", log.ID, err)
			}
		}

		return nil
	})
}
