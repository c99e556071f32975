package models

import (
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// UnmarshalBSON decodes a booking field by field. Status and price fields are
// written by the back office as well, so a value of an unexpected type falls
// back to the field's zero value instead of failing the whole document.
// Fallbacks are reported by CoercedFields.
func (b *Booking) UnmarshalBSON(data []byte) error {
	elems, err := bson.Raw(data).Elements()
	if err != nil {
		return err
	}

	var out Booking
	for _, el := range elems {
		if !out.setField(el.Key(), el.Value()) {
			out.coerced = append(out.coerced, el.Key())
		}
	}
	*b = out
	return nil
}

// CoercedFields lists the stored fields that did not have the expected type
// when the booking was decoded.
func (b *Booking) CoercedFields() []string {
	return b.coerced
}

func (b *Booking) setField(key string, v bson.RawValue) bool {
	var ok bool
	switch key {
	case "_id":
		b.ID, ok = rawString(v)
	case "CustomerId":
		b.CustomerID, ok = rawString(v)
	case "CustomerName":
		b.CustomerName, ok = rawString(v)
	case "CustomerEmail":
		b.CustomerEmail, ok = rawString(v)
	case "BookingAddress":
		b.Address, ok = rawString(v)
	case "BookingDate":
		b.Date, ok = rawTime(v)
	case "PreferredTime":
		b.PreferredTime, ok = rawString(v)
	case "Status":
		b.Status, ok = rawString(v)
	case "ServiceType":
		b.ServiceType, ok = rawString(v)
	case "EstimatedPrice":
		b.EstimatedPrice, ok = rawFloat(v)
	case "FinalPrice":
		b.FinalPrice, ok = rawFloat(v)
	case "IsPriceSet":
		b.IsPriceSet, ok = rawBool(v)
	case "PaymentStatus":
		b.PaymentStatus, ok = rawString(v)
	case "BinSize":
		b.BinSize, ok = rawString(v)
	case "CarpetSize":
		b.CarpetSize, ok = rawString(v)
	case "SpecialRequest":
		b.SpecialRequest, ok = rawString(v)
	case "CreatedAt":
		b.CreatedAt, ok = rawTime(v)
	case "UpdatedAt":
		b.UpdatedAt, ok = rawTime(v)
	default:
		return true
	}
	return ok
}

func isNull(v bson.RawValue) bool {
	return v.Type == bson.TypeNull || v.Type == bson.TypeUndefined
}

func rawString(v bson.RawValue) (string, bool) {
	if s, ok := v.StringValueOK(); ok {
		return s, true
	}
	if oid, ok := v.ObjectIDOK(); ok {
		return oid.Hex(), true
	}
	if n, ok := rawNumber(v); ok {
		return strconv.FormatFloat(n, 'f', -1, 64), true
	}
	return "", isNull(v)
}

func rawFloat(v bson.RawValue) (float64, bool) {
	if n, ok := rawNumber(v); ok {
		return n, true
	}
	if s, ok := v.StringValueOK(); ok {
		if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return n, true
		}
		return 0, false
	}
	return 0, isNull(v)
}

func rawNumber(v bson.RawValue) (float64, bool) {
	if f, ok := v.DoubleOK(); ok {
		return f, true
	}
	if i, ok := v.Int32OK(); ok {
		return float64(i), true
	}
	if i, ok := v.Int64OK(); ok {
		return float64(i), true
	}
	if d, ok := v.Decimal128OK(); ok {
		if f, err := strconv.ParseFloat(d.String(), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func rawBool(v bson.RawValue) (bool, bool) {
	if b, ok := v.BooleanOK(); ok {
		return b, true
	}
	if s, ok := v.StringValueOK(); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
		return false, false
	}
	return false, isNull(v)
}

// rawTime accepts BSON datetimes and timestamps, and strings in RFC 3339 or
// DateLayout form.
func rawTime(v bson.RawValue) (time.Time, bool) {
	if ms, ok := v.DateTimeOK(); ok {
		return time.UnixMilli(ms).UTC(), true
	}
	if sec, _, ok := v.TimestampOK(); ok {
		return time.Unix(int64(sec), 0).UTC(), true
	}
	if s, ok := v.StringValueOK(); ok {
		s = strings.TrimSpace(s)
		for _, layout := range []string{time.RFC3339Nano, DateLayout} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
		return time.Time{}, false
	}
	return time.Time{}, isNull(v)
}
