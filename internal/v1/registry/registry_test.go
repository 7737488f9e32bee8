package registry

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alex-gusto/buzzer/internal/v1/apperror"
	"github.com/alex-gusto/buzzer/internal/v1/questionsource"
)

type stubSource struct{}

func (stubSource) FetchCategories(ctx context.Context) (map[string][]string, error) {
	return map[string][]string{"science": {"physics", "chemistry"}}, nil
}

func (stubSource) FetchQuestion(ctx context.Context, params questionsource.FetchQuestionParams) (questionsource.Question, error) {
	return questionsource.Question{ID: "Q1", CorrectAnswer: "x"}, nil
}

func (stubSource) Healthy(ctx context.Context) bool { return true }

func TestCreateRoom_AssignsUniqueCodeAndSecret(t *testing.T) {
	reg := New(50*time.Millisecond, stubSource{})
	r1, err := reg.CreateRoom(context.Background())
	require.NoError(t, err)
	r2, err := reg.CreateRoom(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, r1.Code(), r2.Code())
	assert.Len(t, r1.Code(), 4)
	assert.NotEmpty(t, r1.HostSecret())
}

func TestGetRoom_NotFound(t *testing.T) {
	reg := New(50*time.Millisecond, stubSource{})
	_, err := reg.GetRoom("ZZZZ")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.RoomNotFound))
}

func TestGetRoom_IsCaseInsensitive(t *testing.T) {
	reg := New(50*time.Millisecond, stubSource{})
	r, err := reg.CreateRoom(context.Background())
	require.NoError(t, err)

	lower, err := reg.GetRoom(strings.ToLower(r.Code()))
	require.NoError(t, err)
	assert.Equal(t, r.Code(), lower.Code())
}

func TestDestroyRoom_IsCaseInsensitive(t *testing.T) {
	reg := New(50*time.Millisecond, stubSource{})
	r, err := reg.CreateRoom(context.Background())
	require.NoError(t, err)

	reg.DestroyRoom(strings.ToLower(r.Code()))
	_, err = reg.GetRoom(r.Code())
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.RoomNotFound))
}

func TestScheduleCleanupIfEmpty_RemovesAfterGrace(t *testing.T) {
	reg := New(30*time.Millisecond, stubSource{})
	r, err := reg.CreateRoom(context.Background())
	require.NoError(t, err)

	reg.ScheduleCleanupIfEmpty(r.Code())
	time.Sleep(100 * time.Millisecond)

	_, err = reg.GetRoom(r.Code())
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.RoomNotFound))
}

func TestScheduleCleanupIfEmpty_CancelledByActivity(t *testing.T) {
	reg := New(30*time.Millisecond, stubSource{})
	r, err := reg.CreateRoom(context.Background())
	require.NoError(t, err)

	reg.ScheduleCleanupIfEmpty(r.Code())
	_, joinErr := r.Join("Alice")
	require.NoError(t, joinErr)
	reg.CancelPendingCleanup(r.Code())

	time.Sleep(100 * time.Millisecond)

	still, err := reg.GetRoom(r.Code())
	require.NoError(t, err)
	assert.Equal(t, r.Code(), still.Code())
}

func TestScheduleCleanupIfEmpty_NoopWhenNotEmpty(t *testing.T) {
	reg := New(20*time.Millisecond, stubSource{})
	r, err := reg.CreateRoom(context.Background())
	require.NoError(t, err)
	_, joinErr := r.Join("Alice")
	require.NoError(t, joinErr)

	reg.ScheduleCleanupIfEmpty(r.Code())
	time.Sleep(60 * time.Millisecond)

	still, err := reg.GetRoom(r.Code())
	require.NoError(t, err)
	assert.Equal(t, r.Code(), still.Code())
}

func TestDestroyRoom_RemovesImmediately(t *testing.T) {
	reg := New(time.Hour, stubSource{})
	r, err := reg.CreateRoom(context.Background())
	require.NoError(t, err)

	reg.DestroyRoom(r.Code())
	_, err = reg.GetRoom(r.Code())
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.RoomNotFound))
}

func TestShareCode_IssueAndClaim(t *testing.T) {
	reg := New(time.Hour, stubSource{})
	r, err := reg.CreateRoom(context.Background())
	require.NoError(t, err)

	code, expiresAt, err := reg.IssueShareCode(r.Code())
	require.NoError(t, err)
	require.Len(t, code, 4)
	assert.Greater(t, expiresAt, time.Now().UnixMilli())

	roomCode, hostSecret, claimedExpiresAt, err := reg.ClaimShareCode(code)
	require.NoError(t, err)
	assert.Equal(t, r.Code(), roomCode)
	assert.Equal(t, r.HostSecret(), hostSecret)
	assert.Equal(t, expiresAt, claimedExpiresAt)
}

func TestShareCode_ClaimRejectsMalformedInput(t *testing.T) {
	reg := New(time.Hour, stubSource{})
	_, _, _, err := reg.ClaimShareCode("12a4")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.InvalidShareCode))

	_, _, _, err = reg.ClaimShareCode("123")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.InvalidShareCode))
}

func TestShareCode_ClaimUnknownCodeNotFound(t *testing.T) {
	reg := New(time.Hour, stubSource{})
	_, _, _, err := reg.ClaimShareCode("0000")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.ShareCodeNotFound))
}

func TestShareCode_ReissuePurgesPreviousCode(t *testing.T) {
	reg := New(time.Hour, stubSource{})
	r, err := reg.CreateRoom(context.Background())
	require.NoError(t, err)

	first, _, err := reg.IssueShareCode(r.Code())
	require.NoError(t, err)

	second, _, err := reg.IssueShareCode(r.Code())
	require.NoError(t, err)

	_, _, _, err = reg.ClaimShareCode(first)
	require.Error(t, err, "previous share code must be purged on reissue")
	assert.True(t, apperror.Is(err, apperror.ShareCodeNotFound))

	_, _, _, err = reg.ClaimShareCode(second)
	require.NoError(t, err)
}

func TestListRooms_SortedByCreatedAtDescending(t *testing.T) {
	reg := New(time.Hour, stubSource{})
	r1, err := reg.CreateRoom(context.Background())
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	r2, err := reg.CreateRoom(context.Background())
	require.NoError(t, err)

	summaries := reg.ListRooms()
	require.Len(t, summaries, 2)
	assert.Equal(t, r2.Code(), summaries[0].Code)
	assert.Equal(t, r1.Code(), summaries[1].Code)
}
