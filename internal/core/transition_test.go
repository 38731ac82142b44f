// AngelaMos | 2026
// transition_test.go

package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type lightStatus string

const (
	lightRed    lightStatus = "red"
	lightGreen  lightStatus = "green"
	lightYellow lightStatus = "yellow"
)

var lightTransitions = Transitions[lightStatus]{
	lightGreen:  {lightRed},
	lightYellow: {lightGreen},
	lightRed:    {lightYellow},
}

func TestTransitions_Check(t *testing.T) {
	assert.NoError(t, lightTransitions.Check(lightRed, lightGreen))
	assert.NoError(t, lightTransitions.Check(lightGreen, lightYellow))

	err := lightTransitions.Check(lightRed, lightYellow)
	assert.True(t, errors.Is(err, ErrConflict))

	err = lightTransitions.Check(lightRed, lightStatus("blue"))
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestMigrationURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@db:5432/app", MigrationURL("postgres://u:p@db:5432/app"))
	assert.Equal(t, "pgx5://u:p@db/app", MigrationURL("postgresql://u:p@db/app"))
	assert.Equal(t, "pgx5://already", MigrationURL("pgx5://already"))
}

func TestJSONMap_ScanAndValue(t *testing.T) {
	var m JSONMap
	assert.NoError(t, m.Scan([]byte(`{"reason":"spam","days":7}`)))
	assert.Equal(t, "spam", m["reason"])
	assert.EqualValues(t, 7, m["days"])

	assert.NoError(t, m.Scan(nil))
	assert.Empty(t, m)

	v, err := JSONMap(nil).Value()
	assert.NoError(t, err)
	assert.Equal(t, []byte("{}"), v)
}

func TestStringList_Scan(t *testing.T) {
	var l StringList
	assert.NoError(t, l.Scan(`["order.paid","dispute.opened"]`))
	assert.Equal(t, StringList{"order.paid", "dispute.opened"}, l)

	assert.Error(t, l.Scan(42))
}
