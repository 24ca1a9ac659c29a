package persist

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/segmentio/ksuid"
)

// DBID represents a database ID
type DBID string

// DBIDList is a slice of DBIDs
type DBIDList []DBID

// CreationTime represents the time a record was created
type CreationTime time.Time

// LastUpdatedTime represents the time a record was last updated
type LastUpdatedTime time.Time

// NullString represents a string that may be null in the database
type NullString string

// NullInt32 represents an int32 that may be null in the database
type NullInt32 int32

// NullInt64 represents an int64 that may be null in the database
type NullInt64 int64

// NullBool represents a bool that may be null in the database
type NullBool bool

// GenerateID generates an application-wide unique ID
func GenerateID() DBID {
	id, err := ksuid.NewRandom()
	if err != nil {
		panic(err)
	}
	return DBID(id.String())
}

func (d DBID) String() string {
	return string(d)
}

// Value implements the driver.Valuer interface for DBID
func (d DBID) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan implements the sql.Scanner interface for DBID
func (d *DBID) Scan(i interface{}) error {
	if i == nil {
		*d = ""
		return nil
	}
	switch v := i.(type) {
	case string:
		*d = DBID(v)
	case []byte:
		*d = DBID(v)
	default:
		return fmt.Errorf("unsupported type for DBID: %T", i)
	}
	return nil
}

// Time returns the time.Time representation of a CreationTime
func (c CreationTime) Time() time.Time {
	return time.Time(c)
}

// Value implements the driver.Valuer interface for CreationTime
func (c CreationTime) Value() (driver.Value, error) {
	if c.Time().IsZero() {
		return time.Now(), nil
	}
	return c.Time(), nil
}

// Scan implements the sql.Scanner interface for CreationTime
func (c *CreationTime) Scan(i interface{}) error {
	if i == nil {
		*c = CreationTime{}
		return nil
	}
	*c = CreationTime(i.(time.Time))
	return nil
}

func (c CreationTime) MarshalJSON() ([]byte, error) {
	return time.Time(c).MarshalJSON()
}

func (c *CreationTime) UnmarshalJSON(b []byte) error {
	t := time.Time{}
	if err := t.UnmarshalJSON(b); err != nil {
		return err
	}
	*c = CreationTime(t)
	return nil
}

// Time returns the time.Time representation of a LastUpdatedTime
func (l LastUpdatedTime) Time() time.Time {
	return time.Time(l)
}

// Value implements the driver.Valuer interface for LastUpdatedTime, always
// stamping the current time so updates don't have to remember to set it.
func (l LastUpdatedTime) Value() (driver.Value, error) {
	return time.Now(), nil
}

// Scan implements the sql.Scanner interface for LastUpdatedTime
func (l *LastUpdatedTime) Scan(i interface{}) error {
	if i == nil {
		*l = LastUpdatedTime{}
		return nil
	}
	*l = LastUpdatedTime(i.(time.Time))
	return nil
}

func (l LastUpdatedTime) MarshalJSON() ([]byte, error) {
	return time.Time(l).MarshalJSON()
}

func (l *LastUpdatedTime) UnmarshalJSON(b []byte) error {
	t := time.Time{}
	if err := t.UnmarshalJSON(b); err != nil {
		return err
	}
	*l = LastUpdatedTime(t)
	return nil
}

func (n NullString) String() string {
	return string(n)
}

// Value implements the driver.Valuer interface for NullString
func (n NullString) Value() (driver.Value, error) {
	if n == "" {
		return "", nil
	}
	return n.String(), nil
}

// Scan implements the sql.Scanner interface for NullString
func (n *NullString) Scan(i interface{}) error {
	if i == nil {
		*n = ""
		return nil
	}
	switch v := i.(type) {
	case string:
		*n = NullString(v)
	case []byte:
		*n = NullString(v)
	default:
		return fmt.Errorf("unsupported type for NullString: %T", i)
	}
	return nil
}

// Int32 returns the int32 representation of a NullInt32
func (n NullInt32) Int32() int32 {
	return int32(n)
}

// Value implements the driver.Valuer interface for NullInt32
func (n NullInt32) Value() (driver.Value, error) {
	return int64(n), nil
}

// Scan implements the sql.Scanner interface for NullInt32
func (n *NullInt32) Scan(i interface{}) error {
	if i == nil {
		*n = 0
		return nil
	}
	*n = NullInt32(i.(int64))
	return nil
}

// Int64 returns the int64 representation of a NullInt64
func (n NullInt64) Int64() int64 {
	return int64(n)
}

// Value implements the driver.Valuer interface for NullInt64
func (n NullInt64) Value() (driver.Value, error) {
	return int64(n), nil
}

// Scan implements the sql.Scanner interface for NullInt64
func (n *NullInt64) Scan(i interface{}) error {
	if i == nil {
		*n = 0
		return nil
	}
	*n = NullInt64(i.(int64))
	return nil
}

// Bool returns the bool representation of a NullBool
func (n NullBool) Bool() bool {
	return bool(n)
}

// Value implements the driver.Valuer interface for NullBool
func (n NullBool) Value() (driver.Value, error) {
	return bool(n), nil
}

// Scan implements the sql.Scanner interface for NullBool
func (n *NullBool) Scan(i interface{}) error {
	if i == nil {
		*n = false
		return nil
	}
	*n = NullBool(i.(bool))
	return nil
}
