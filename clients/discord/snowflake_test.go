package discord

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSnowflakeToTimestampMs(t *testing.T) {
	tests := []struct {
		name      string
		snowflake string
		want      int64
	}{
		{
			name:      "epoch snowflake",
			snowflake: "0",
			want:      1420070400000,
		},
		{
			name: "known message ID",
			// 175928847299117063 >> 22 = 41944705796 ms past the epoch
			snowflake: "175928847299117063",
			want:      1462015105796,
		},
		{
			name:      "unparseable input",
			snowflake: "not-a-snowflake",
			want:      0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SnowflakeToTimestampMs(tt.snowflake))
		})
	}
}

func TestTimestampMsToSnowflake(t *testing.T) {
	t.Run("round trips through a snowflake", func(t *testing.T) {
		timestampMs := time.Date(2023, time.May, 10, 12, 0, 0, 0, time.UTC).UnixMilli()
		snowflake := TimestampMsToSnowflake(timestampMs)
		assert.Equal(t, timestampMs, SnowflakeToTimestampMs(snowflake))
	})

	t.Run("epoch maps to zero snowflake", func(t *testing.T) {
		assert.Equal(t, "0", TimestampMsToSnowflake(1420070400000))
	})
}
