package reward

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeQR(t *testing.T) {
	png, err := CodeQR("SPRING-10")
	require.NoError(t, err)
	require.Greater(t, len(png), 8)
	require.Equal(t, "\x89PNG", string(png[:4]))
}
