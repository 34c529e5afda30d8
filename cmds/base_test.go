package cmds

import (
	"testing"

	"github.com/lainio/err2/assert"
)

func TestValidateTime(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	err := ValidateTime("21:45")
	assert.NoError(err)
	err = ValidateTime("01:37:48")
	assert.NoError(err)
	err = ValidateTime("24:00:00")
	assert.Error(err)
	err = ValidateTime("midnight")
	assert.Error(err)
}

func TestValidateStoreKey(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	err := ValidateStoreKey("")
	assert.NoError(err)
	err = ValidateStoreKey(
		"15308490f1e4026284594dd08d31291bc8ef2aeac730d0daf6ff87bb92d4336c")
	assert.NoError(err)
	err = ValidateStoreKey("deadbeef")
	assert.Error(err)
	err = ValidateStoreKey(
		"z5308490f1e4026284594dd08d31291bc8ef2aeac730d0daf6ff87bb92d4336c")
	assert.Error(err)
}
