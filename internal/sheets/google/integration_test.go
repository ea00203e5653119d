//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"ensemble/internal/core"
)

// Integration tests require a real spreadsheet and credentials.
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_SheetsFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	if spreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}

	ctx := context.Background()
	client, err := New(ctx, Config{SpreadsheetID: spreadsheetID, Credentials: credentialsFromEnv()})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	var pieces []string
	t.Run("PieceList", func(t *testing.T) {
		pieces, err = client.List(ctx)
		if err != nil {
			t.Fatalf("Failed to list pieces: %v", err)
		}
		t.Logf("Found %d pieces: %v", len(pieces), pieces)
	})

	t.Run("RowSource", func(t *testing.T) {
		if len(pieces) == 0 {
			t.Skip("No pieces configured")
		}
		rows, err := client.Rows(ctx, pieces[0])
		if err != nil {
			t.Fatalf("Failed to read rows: %v", err)
		}
		tally := core.Tally(rows)
		t.Logf("Piece %s: %d rows, %d people", pieces[0], len(rows), len(tally.Counts))
	})

	t.Run("ReportSink", func(t *testing.T) {
		title := "integration_" + time.Now().Format("20060102150405")
		ok, err := client.Exists(ctx, title)
		if err != nil {
			t.Fatalf("Exists: %v", err)
		}
		if ok {
			t.Fatalf("sheet %s should not exist yet", title)
		}
		if err := client.Create(ctx, title); err != nil {
			t.Fatalf("Create: %v", err)
		}
		table := core.ReportTable([]core.ReportRow{{Name: "Integration", Required: 1, Missing: 1, Fine: core.AudioFineRate}})
		if err := client.Write(ctx, title, table); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if err := client.Clear(ctx, title); err != nil {
			t.Fatalf("Clear: %v", err)
		}
		t.Logf("Left sheet %s behind for manual removal", title)
	})
}

func credentialsFromEnv() Credentials {
	c := Credentials{
		ServiceAccountJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		ServiceAccountFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
		OAuthClientJSON:    os.Getenv("GOOGLE_OAUTH_CLIENT_JSON"),
		OAuthClientFile:    os.Getenv("GOOGLE_OAUTH_CLIENT_FILE"),
		OAuthTokenJSON:     os.Getenv("GOOGLE_OAUTH_TOKEN_JSON"),
		OAuthTokenFile:     os.Getenv("GOOGLE_OAUTH_TOKEN_FILE"),
	}
	if c.ServiceAccountFile == "" {
		c.ServiceAccountFile = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
	return c
}
