package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentityPrimaryEmail(t *testing.T) {
	tests := []struct {
		name   string
		emails []string
		want   string
	}{
		{name: "no addresses", emails: nil, want: ""},
		{name: "first wins", emails: []string{"a@b.com", "c@d.com"}, want: "a@b.com"},
		{name: "blank entries skipped", emails: []string{"  ", "c@d.com"}, want: "c@d.com"},
		{name: "trimmed", emails: []string{" a@b.com "}, want: "a@b.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := &Identity{ID: "github:1", Emails: tt.emails}
			assert.Equal(t, tt.want, id.PrimaryEmail())
		})
	}
}

func TestThemeValid(t *testing.T) {
	assert.True(t, ThemeLight.Valid())
	assert.True(t, ThemeDark.Valid())
	assert.True(t, ThemeAuto.Valid())
	assert.False(t, Theme("solarized").Valid())
	assert.False(t, Theme("").Valid())
}

func TestPtrDeref(t *testing.T) {
	assert.Nil(t, Ptr(""))
	assert.Equal(t, "x", Deref(Ptr("x")))
	assert.Equal(t, "", Deref(nil))
}
