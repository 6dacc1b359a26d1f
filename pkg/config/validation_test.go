package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/buildnotify/pkg/errors"
)

func TestValidatePhoneList(t *testing.T) {
	tests := []struct {
		list string
		want bool
	}{
		{"", true},
		{"+15551234", true},
		{"+43 (660) 123-45/67,0664 1234", true},
		{"+1555abc", false},
		{"+1,+2,call me", false},
		{"+1;+2", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidatePhoneList(tt.list), tt.list)
	}
}

func TestNotifier_Validate(t *testing.T) {
	assert.NoError(t, Notifier{Message: "%PROJECT%", Recipients: "+1,+2"}.Validate())

	err := Notifier{Recipients: "+1"}.Validate()
	assert.Equal(t, errors.ErrInvalidConfig, errors.GetErrorCode(err))

	err = Notifier{Message: "m", Recipients: "bob"}.Validate()
	assert.Equal(t, errors.ErrInvalidConfig, errors.GetErrorCode(err))
}

func TestGateway_Validate(t *testing.T) {
	valid := Gateway{APIKey: "k", Msisdn: "+1", Password: "p", BaseURL: "https://ci.example.com/"}
	assert.NoError(t, valid.Validate())

	missing := valid
	missing.Password = ""
	assert.Equal(t, errors.ErrMissingCredentials, errors.GetErrorCode(missing.Validate()))

	badURL := valid
	badURL.GatewayURL = "ftp://gw.example.com"
	assert.Equal(t, errors.ErrInvalidConfig, errors.GetErrorCode(badURL.Validate()))
}

func TestGateway_Redacted(t *testing.T) {
	g := Gateway{APIKey: "k", Password: "p", Msisdn: "+1"}.Redacted()
	assert.Equal(t, "[redacted]", g.APIKey)
	assert.Equal(t, "[redacted]", g.Password)
	assert.Equal(t, "+1", g.Msisdn)
}

func TestGateway_ValidateReportsFirstBadURL(t *testing.T) {
	g := Gateway{
		APIKey:       "k",
		Msisdn:       "+1",
		Password:     "p",
		BaseURL:      "not a url",
		GatewayURL:   "ftp://gw.example.com",
		ShortenerURL: "mailto:x",
	}
	for i := 0; i < 20; i++ {
		err := g.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "base_url is not a valid http(s) URL")
	}
}

func TestGateway_KeepSecrets(t *testing.T) {
	stored := Gateway{APIKey: "realkey", Msisdn: "+1", Password: "realpw"}

	tests := []struct {
		name         string
		in           Gateway
		wantKey      string
		wantPassword string
	}{
		{"redacted", stored.Redacted(), "realkey", "realpw"},
		{"empty", Gateway{Msisdn: "+2"}, "realkey", "realpw"},
		{"rotated", Gateway{APIKey: "newkey", Password: RedactedSecret}, "newkey", "realpw"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.KeepSecrets(stored)
			assert.Equal(t, tt.wantKey, got.APIKey)
			assert.Equal(t, tt.wantPassword, got.Password)
			assert.Equal(t, tt.in.Msisdn, got.Msisdn)
		})
	}
}
