package evidence

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClient(now time.Time) *WHOISClient {
	c := NewWHOISClient()
	c.now = func() time.Time { return now }
	return c
}

// scriptedConn serves a canned registry response and records the query.
// The embedded net.Conn is nil; only the methods the client touches are
// implemented.
type scriptedConn struct {
	net.Conn
	response    *strings.Reader
	wrote       strings.Builder
	deadlineErr error
}

func (c *scriptedConn) Read(p []byte) (int, error)  { return c.response.Read(p) }
func (c *scriptedConn) Write(p []byte) (int, error) { return c.wrote.Write(p) }
func (c *scriptedConn) Close() error                { return nil }
func (c *scriptedConn) SetDeadline(time.Time) error { return c.deadlineErr }

func TestWHOISLookup_QueriesRegistrableDomain(t *testing.T) {
	conn := &scriptedConn{response: strings.NewReader(
		"Registrar: Example Registrar LLC\nCreation Date: 2026-01-30T00:00:00Z\n")}
	c := fixedClient(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	var dialedAddr string
	c.Dial = func(_ context.Context, _, addr string) (net.Conn, error) {
		dialedAddr = addr
		return conn, nil
	}

	ev, err := c.Lookup(context.Background(), "shop.example.com")
	require.NoError(t, err)

	assert.Equal(t, "com.whois-servers.net:43", dialedAddr)
	assert.Equal(t, "example.com\r\n", conn.wrote.String(), "subdomains query the parent record")
	assert.Equal(t, 30, ev.AgeDays)
	assert.Equal(t, "Example Registrar LLC", ev.Registrar)
}

func TestWHOISQuery_DeadlineSetFailure(t *testing.T) {
	conn := &scriptedConn{
		response:    strings.NewReader(""),
		deadlineErr: errors.New("connection already closed"),
	}
	c := NewWHOISClient()
	c.Dial = func(context.Context, string, string) (net.Conn, error) { return conn, nil }

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := c.query(ctx, "com.whois-servers.net:43", "example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "whois deadline")
}

func TestWHOISParse(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		raw           string
		wantAgeDays   int
		wantPrivacy   bool
		wantRegistrar string
		wantExpiry    bool
	}{
		{
			name: "verisign style",
			raw: "Domain Name: EXAMPLE.COM\n" +
				"Registrar: Example Registrar LLC\n" +
				"Creation Date: 2026-01-30T00:00:00Z\n" +
				"Registry Expiry Date: 2027-01-30T00:00:00Z\n",
			wantAgeDays:   30,
			wantRegistrar: "Example Registrar LLC",
			wantExpiry:    true,
		},
		{
			name: "privacy shielded",
			raw: "Registrant Name: REDACTED FOR PRIVACY\n" +
				"Registrar: Cheap Domains Inc\n" +
				"Created: 2016-03-01\n",
			wantAgeDays:   3652,
			wantPrivacy:   true,
			wantRegistrar: "Cheap Domains Inc",
		},
		{
			name: "legacy date layout",
			raw: "Registered on: 01-Feb-2026\n" +
				"Expiry date: 01-Feb-2027\n",
			wantAgeDays: 28,
			wantExpiry:  true,
		},
		{
			name:        "no dates leaves age unknown",
			raw:         "Domain Name: example.com\nStatus: active\n",
			wantAgeDays: -1,
		},
		{
			name:        "garbage dates leave age unknown",
			raw:         "Creation Date: soon\n",
			wantAgeDays: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := fixedClient(now).parse(tt.raw)

			assert.Equal(t, tt.wantAgeDays, ev.AgeDays)
			assert.Equal(t, tt.wantPrivacy, ev.Privacy)
			assert.Equal(t, tt.wantRegistrar, ev.Registrar)
			assert.Equal(t, tt.wantExpiry, !ev.ExpiresAt.IsZero())
		})
	}
}

func TestWHOISParse_FirstValueWins(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	raw := "Creation Date: 2026-02-01T00:00:00Z\n" +
		"Creation Date: 2020-01-01T00:00:00Z\n" +
		"Registrar: First Registrar\n" +
		"Registrar: Second Registrar\n"

	ev := fixedClient(now).parse(raw)

	assert.Equal(t, 28, ev.AgeDays)
	assert.Equal(t, "First Registrar", ev.Registrar)
}

func TestParseWhoisTime(t *testing.T) {
	tests := []struct {
		value  string
		wantOK bool
	}{
		{"2026-01-30T12:00:00Z", true},
		{"2026-01-30 12:00:00", true},
		{"2026-01-30", true},
		{"30-Jan-2026", true},
		{"2026.01.30", true},
		{"before 1995", false},
		{"", false},
	}
	for _, tt := range tests {
		_, ok := parseWhoisTime(tt.value)
		assert.Equal(t, tt.wantOK, ok, tt.value)
	}
}
