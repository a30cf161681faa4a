package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// TimestampPrecision точность хранимого времени (BSON Date хранит миллисекунды)
const TimestampPrecision = time.Millisecond

// DeviceID возвращает идентификатор комнаты записи; числа приводятся к строке
func DeviceID(r Record) string {
	return stringField(r, KeyDeviceID)
}

// NormalizeRecord возвращает копию записи в виде для хранения: timestamp
// становится time.Time в UTC с точностью TimestampPrecision, device_id - строкой.
// device_id, не являющийся строкой или числом, - ошибка.
func NormalizeRecord(r Record) (Record, error) {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}

	if v, ok := r[KeyTimestamp]; ok && v != nil {
		ts, err := ParseTimestamp(v)
		if err != nil {
			return nil, err
		}
		out[KeyTimestamp] = ts.UTC().Truncate(TimestampPrecision)
	}

	switch v := r[KeyDeviceID].(type) {
	case nil, string:
	case int, int32, int64, uint, uint32, uint64:
		out[KeyDeviceID] = fmt.Sprint(v)
	case float64:
		out[KeyDeviceID] = strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		out[KeyDeviceID] = v.String()
	default:
		return nil, fmt.Errorf("field %s: unsupported type %T", KeyDeviceID, v)
	}
	return out, nil
}
