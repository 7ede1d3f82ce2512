package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func sample(session, id string, sender Sender, text string, actions ...Action) Message {
	return Message{
		ID:        id,
		SessionID: session,
		Sender:    sender,
		Text:      text,
		Actions:   actions,
		CreatedAt: time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestStore_SQLiteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s := Open(path)
	t.Cleanup(func() { _ = s.Close() })
	require.True(t, s.Persistent())

	s.Save(sample("s1", "m1", SenderUser, "I have a headache"))
	s.Save(sample("s2", "m2", SenderUser, "hello"))
	s.Save(sample("s1", "m3", SenderAssistant, "How long has it lasted?",
		Action{Label: "Less than a day", Command: "/duration_short"},
		Action{Label: "Longer", Command: "/duration_long"},
	))

	got := s.List("s1")
	require.Len(t, got, 2)
	require.Equal(t, "m1", got[0].ID)
	require.Equal(t, SenderUser, got[0].Sender)
	require.Empty(t, got[0].Actions)
	require.Equal(t, "m3", got[1].ID)
	require.Equal(t, SenderAssistant, got[1].Sender)
	require.Equal(t, []Action{
		{Label: "Less than a day", Command: "/duration_short"},
		{Label: "Longer", Command: "/duration_long"},
	}, got[1].Actions)

	require.Equal(t, []string{"s1", "s2"}, s.Sessions())

	// a second store on the same file sees the persisted transcript
	reopened := Open(path)
	t.Cleanup(func() { _ = reopened.Close() })
	require.Len(t, reopened.List("s1"), 2)
}

func TestStore_MemoryOnly(t *testing.T) {
	s := Open("")
	require.False(t, s.Persistent())

	s.Save(sample("s1", "m1", SenderUser, "one"))
	s.Save(sample("s2", "m2", SenderUser, "two"))
	s.Save(sample("s1", "m3", SenderAssistant, "three"))

	got := s.List("s1")
	require.Len(t, got, 2)
	require.Equal(t, "one", got[0].Text)
	require.Equal(t, "three", got[1].Text)
	require.Equal(t, []string{"s1", "s2"}, s.Sessions())
	require.Empty(t, s.List("unknown"))
	require.NoError(t, s.Close())
}

func TestStore_FallsBackWhenPathUnusable(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "missing-dir", "nested", "history.db"))
	require.False(t, s.Persistent())

	s.Save(sample("s1", "m1", SenderUser, "still recorded"))
	require.Len(t, s.List("s1"), 1)
}
