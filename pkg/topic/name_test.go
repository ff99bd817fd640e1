package topic_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ravel-org/sselay/pkg/topic"
)

func TestNameValidate(t *testing.T) {

	t.Run("basic", func(t *testing.T) {
		_, err1 := topic.NewName("orders")
		require.NoError(t, err1)
		_, err2 := topic.NewName("orders/eu-west/created")
		require.NoError(t, err2)
	})

	t.Run("sys", func(t *testing.T) {
		_, err := topic.NewName("$SYS/session")
		require.NoError(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := topic.NewName("")
		require.Error(t, err)
	})

	t.Run("whitespace", func(t *testing.T) {
		_, err1 := topic.NewName("has space")
		require.Error(t, err1)
		_, err2 := topic.NewName("tab\tseparated")
		require.Error(t, err2)
	})

	t.Run("too long", func(t *testing.T) {
		_, err := topic.NewName(strings.Repeat("a", 65536))
		require.Error(t, err)
	})
}
