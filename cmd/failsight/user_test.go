package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"golang.org/x/crypto/bcrypt"

	"github.com/nao1215/failsight/internal/database"
)

func TestUserCmd(t *testing.T) {
	t.Parallel()

	dbDir := t.TempDir()
	username := gofakeit.Username()
	user := func(stdin string, args ...string) (string, error) {
		t.Helper()
		args = append([]string{"user"}, args...)
		return runCLI(t, stdin, append(args, "--db-dir", dbDir)...)
	}

	out, err := user("", "list")
	if err != nil || !strings.Contains(out, "No users") {
		t.Fatalf("empty list: %q %v", out, err)
	}

	if _, err := user("correct horse\n", "add", username, "--cost", "4"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := user("correct horse\n", "add", username, "--cost", "4"); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("duplicate add: %v", err)
	}

	out, err = user("", "list")
	if err != nil || !strings.Contains(out, username) {
		t.Errorf("list does not show %s: %q %v", username, out, err)
	}

	if _, err := user("battery staple\n", "passwd", username, "--cost", "4"); err != nil {
		t.Fatalf("passwd: %v", err)
	}
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	stored, err := db.FindUserByUsername(context.Background(), username)
	_ = db.Close()
	if err != nil || stored == nil {
		t.Fatalf("user not stored: %v", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("battery staple")) != nil {
		t.Error("password was not changed")
	}

	if _, err := user("", "delete", username); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := user("", "delete", username); !errors.Is(err, database.ErrUserNotFound) {
		t.Errorf("second delete: got %v, want ErrUserNotFound", err)
	}
}

func TestUserCmd_RejectsShortPassword(t *testing.T) {
	t.Parallel()

	_, err := runCLI(t, "short\n", "user", "add", "alice", "--db-dir", t.TempDir())
	if !errors.Is(err, errShortPassword) {
		t.Errorf("got %v, want errShortPassword", err)
	}
}

func TestReadLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "newline", input: "secret\n", want: "secret"},
		{name: "crlf", input: "secret\r\nrest", want: "secret"},
		{name: "no newline", input: "secret", want: "secret"},
		{name: "empty", input: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := readLine(strings.NewReader(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("readLine() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("readLine() = %q, want %q", got, tt.want)
			}
		})
	}
}
