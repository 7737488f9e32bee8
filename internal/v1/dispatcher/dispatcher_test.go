package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alex-gusto/buzzer/internal/v1/apperror"
	"github.com/alex-gusto/buzzer/internal/v1/questionsource"
	"github.com/alex-gusto/buzzer/internal/v1/registry"
	"github.com/alex-gusto/buzzer/internal/v1/room"
)

type stubSource struct{}

func (stubSource) FetchCategories(ctx context.Context) (map[string][]string, error) {
	return nil, nil
}

func (stubSource) FetchQuestion(ctx context.Context, params questionsource.FetchQuestionParams) (questionsource.Question, error) {
	return questionsource.Question{
		ID: "Q1", Category: params.Category, Difficulty: params.Difficulty,
		CorrectAnswer: "42", IncorrectAnswers: []string{"a", "b", "c"},
	}, nil
}

func (stubSource) Healthy(ctx context.Context) bool { return true }

func newDispatcher() *Dispatcher {
	return New(registry.New(time.Hour, stubSource{}))
}

func TestDispatcher_CreateAndJoin(t *testing.T) {
	d := newDispatcher()
	code, hostSecret, err := d.CreateRoom(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, code)
	require.NotEmpty(t, hostSecret)

	playerID, err := d.Join(code, "Alice")
	require.NoError(t, err)
	require.NotEmpty(t, playerID)
}

func TestDispatcher_HostOpsRejectWrongSecret(t *testing.T) {
	d := newDispatcher()
	code, _, err := d.CreateRoom(context.Background())
	require.NoError(t, err)
	playerID, err := d.Join(code, "Alice")
	require.NoError(t, err)

	err = d.SetTurn(code, "wrong-secret", playerID)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.Forbidden))
}

func TestDispatcher_UnknownRoomReturnsRoomNotFound(t *testing.T) {
	d := newDispatcher()
	_, err := d.Join("ZZZZ", "Alice")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.RoomNotFound))
}

func TestDispatcher_FullQuestionLifecycle(t *testing.T) {
	d := newDispatcher()
	code, hostSecret, err := d.CreateRoom(context.Background())
	require.NoError(t, err)
	alice, err := d.Join(code, "Alice")
	require.NoError(t, err)

	require.NoError(t, d.SetTurn(code, hostSecret, alice))
	require.NoError(t, d.Activate(context.Background(), code, hostSecret, room.ActivateParams{Category: "science", Difficulty: "medium"}))
	require.NoError(t, d.MarkCorrect(code, hostSecret, ""))

	snap, err := d.GetSnapshot(code)
	require.NoError(t, err)
	require.Len(t, snap.Players, 1)
	assert.Equal(t, 250, snap.Players[0].Score)
	assert.Empty(t, snap.ActiveQuestion, "markCorrect must finish the question and clear activeQuestion")
}

func TestDispatcher_RemovePlayerSchedulesCleanup(t *testing.T) {
	reg := registry.New(20*time.Millisecond, stubSource{})
	d := New(reg)
	code, _, err := d.CreateRoom(context.Background())
	require.NoError(t, err)
	alice, err := d.Join(code, "Alice")
	require.NoError(t, err)

	require.NoError(t, d.RemovePlayer(code, alice))
	time.Sleep(80 * time.Millisecond)

	_, err = d.GetSnapshot(code)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.RoomNotFound))
}

func TestDispatcher_ShareCodeRoundTrip(t *testing.T) {
	d := newDispatcher()
	code, hostSecret, err := d.CreateRoom(context.Background())
	require.NoError(t, err)

	shareCode, expiresAt, err := d.IssueShareCode(code, hostSecret)
	require.NoError(t, err)
	require.Len(t, shareCode, 4)

	claimedCode, claimedSecret, claimedExpiresAt, err := d.ClaimShareCode(shareCode)
	require.NoError(t, err)
	assert.Equal(t, code, claimedCode)
	assert.Equal(t, hostSecret, claimedSecret)
	assert.Equal(t, expiresAt, claimedExpiresAt)
}
