// Package inmemdb provides map-backed repositories for tests.
package inmemdb

import (
	"sync"

	"github.com/trezcool/lifeline/core/alert"
	"github.com/trezcool/lifeline/core/donor"
	"github.com/trezcool/lifeline/core/messaging"
	"github.com/trezcool/lifeline/core/user"
)

type DB struct {
	mutex sync.RWMutex

	users     map[string]*user.User
	donors    map[string]*donor.Donor
	messages  map[string]*messaging.Message
	audits    map[string]*alert.Audit
	responses map[string]*alert.DonorResponse
}

func NewDB() *DB {
	return &DB{
		users:     make(map[string]*user.User),
		donors:    make(map[string]*donor.Donor),
		messages:  make(map[string]*messaging.Message),
		audits:    make(map[string]*alert.Audit),
		responses: make(map[string]*alert.DonorResponse),
	}
}
