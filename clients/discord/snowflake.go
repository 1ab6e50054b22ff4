package discord

import (
	"strconv"
)

// Discord snowflakes are 64-bit IDs whose top 42 bits encode milliseconds
// since the Discord epoch (2015-01-01T00:00:00.000Z).
const discordEpochMs = 1420070400000

// SnowflakeToTimestampMs converts a snowflake ID to a Unix timestamp in
// milliseconds. Returns 0 for unparseable input.
func SnowflakeToTimestampMs(snowflake string) int64 {
	id, err := strconv.ParseUint(snowflake, 10, 64)
	if err != nil {
		return 0
	}
	return int64(id>>22) + discordEpochMs
}

// TimestampMsToSnowflake builds a snowflake whose timestamp component is the
// given Unix millisecond timestamp. The worker, process and increment bits are
// zero, which sorts it before any real ID from the same millisecond.
func TimestampMsToSnowflake(timestampMs int64) string {
	return strconv.FormatUint(uint64(timestampMs-discordEpochMs)<<22, 10)
}
