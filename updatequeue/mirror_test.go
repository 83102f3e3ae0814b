package updatequeue

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/evalgo/semindex/model"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisMirrorAddsSubjectToSet(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	mirror := NewRedisMirror(client, "semindex:updatequeue:", time.Minute)
	mirror.MirrorAdd("http://example.org/res/1", "person", model.UpdateKindUpdate)

	members, err := mr.SMembers("semindex:updatequeue:http://example.org/res/1")
	require.NoError(t, err)
	require.Contains(t, members, "update:person")
}

func TestNoopMirrorIsSafeNoOp(t *testing.T) {
	var m Mirror = noopMirror{}
	m.MirrorAdd("s", "t", model.UpdateKindDelete)
}
