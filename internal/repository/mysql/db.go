package mysql

import (
	"errors"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var DB *gorm.DB

// Sentinel errors the services translate into the public taxonomy.
var (
	ErrAlreadyDecided    = errors.New("already decided")
	ErrNoneEligible      = errors.New("no eligible events")
	ErrEventNotOpen      = errors.New("event not open for registration")
	ErrAlreadyRegistered = errors.New("already registered")
	ErrCapacityExceeded  = errors.New("capacity exceeded")
)

func InitDB(dsn string) error {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// lockForUpdate takes a row lock on mysql. The sqlite driver used in tests
// does not parse FOR UPDATE and is single-writer there anyway.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "mysql" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
