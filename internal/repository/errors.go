// Package repository defines the MySQL data access layer and the error
// values it reports.  These sentinel values allow higher layers to tell
// apart the business outcomes of a storage call (missing row, unique key
// hit, capacity reached) from infrastructure failures, which are returned
// wrapped and unclassified.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when inserting a user whose email is taken.
var ErrEmailExists = errors.New("email already exists")

// ErrEventUnavailable is returned by a purchase when the event does not
// exist or has been closed.
var ErrEventUnavailable = errors.New("event does not exist or is closed")

// ErrSoldOut is returned by a purchase when the event has no capacity left.
var ErrSoldOut = errors.New("event is sold out")

// ErrDuplicateTicket is returned by a purchase when the user already holds
// a ticket for the event.
var ErrDuplicateTicket = errors.New("ticket already exists for user and event")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// isDuplicateKey reports whether err is a unique key violation.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
