// SPDX-License-Identifier: GPL-3.0-or-later

package spanid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewUnique(t *testing.T) {
	a := New()
	b := New()

	assert.NotEmpty(t, a)
	assert.NotEmpty(t, b)
	assert.NotEqual(t, a, b)
}
