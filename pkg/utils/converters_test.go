package utils

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

func TestUUIDRoundTrip(t *testing.T) {
	id := uuid.New()
	if got := FromPgUUID(ToPgUUID(id)); got != id {
		t.Errorf("round trip lost the value: %s != %s", got, id)
	}
	if got := FromPgUUID(pgtype.UUID{}); got != uuid.Nil {
		t.Errorf("invalid pg uuid must map to Nil, got %s", got)
	}
}

func TestNullableIntConverters(t *testing.T) {
	if ToPgInt4(nil).Valid {
		t.Errorf("nil int32 must map to NULL")
	}
	if FromPgInt4(pgtype.Int4{}) != nil {
		t.Errorf("NULL must map back to nil")
	}

	code := int32(503)
	pg := ToPgInt4(&code)
	if !pg.Valid || pg.Int32 != 503 {
		t.Errorf("unexpected conversion: %+v", pg)
	}
	if got := FromPgInt4(pg); got == nil || *got != 503 {
		t.Errorf("round trip lost the value: %v", got)
	}

	latency := int64(120)
	if got := FromPgInt8(ToPgInt8(&latency)); got == nil || *got != 120 {
		t.Errorf("int8 round trip lost the value: %v", got)
	}
	if ToPgInt8(nil).Valid {
		t.Errorf("nil int64 must map to NULL")
	}
}

func TestTimestamptzConverters(t *testing.T) {
	if ToPgTimestamptz(time.Time{}).Valid {
		t.Errorf("zero time must map to NULL")
	}

	now := time.Now().Truncate(time.Microsecond)
	got := FromPgTimestamptz(ToPgTimestamptz(now))
	if !got.Equal(now) {
		t.Errorf("round trip lost the value: %v != %v", got, now)
	}

	inf := pgtype.Timestamptz{Valid: true, InfinityModifier: pgtype.Infinity}
	if !FromPgTimestamptz(inf).IsZero() {
		t.Errorf("infinite timestamps read as zero time")
	}
}
