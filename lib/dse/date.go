package dse

import (
	"encoding/binary"
	"time"
)

// DateSize is the size of an encoded Date.
const DateSize = 8

// A Date is a modification timestamp stored in SMDL and SWDL headers.
type Date struct {
	Year        uint16
	Month       uint8
	Day         uint8
	Hour        uint8
	Minute      uint8
	Second      uint8
	Centisecond uint8
}

// ParseDate decodes a date. The data must be at least DateSize bytes long.
func ParseDate(data []byte) Date {
	_ = data[:DateSize]
	return Date{
		Year:        binary.LittleEndian.Uint16(data[0:2]),
		Month:       data[2],
		Day:         data[3],
		Hour:        data[4],
		Minute:      data[5],
		Second:      data[6],
		Centisecond: data[7],
	}
}

// Put writes the date to the first DateSize bytes of data.
func (d Date) Put(data []byte) {
	_ = data[:DateSize]
	binary.LittleEndian.PutUint16(data[0:2], d.Year)
	data[2] = d.Month
	data[3] = d.Day
	data[4] = d.Hour
	data[5] = d.Minute
	data[6] = d.Second
	data[7] = d.Centisecond
}

// DateFromTime converts a time to a Date, truncating to centiseconds.
func DateFromTime(t time.Time) Date {
	return Date{
		Year:        uint16(t.Year()),
		Month:       uint8(t.Month()),
		Day:         uint8(t.Day()),
		Hour:        uint8(t.Hour()),
		Minute:      uint8(t.Minute()),
		Second:      uint8(t.Second()),
		Centisecond: uint8(t.Nanosecond() / int(10*time.Millisecond)),
	}
}

// Time returns the date as a time in the given location.
func (d Date) Time(loc *time.Location) time.Time {
	return time.Date(int(d.Year), time.Month(d.Month), int(d.Day),
		int(d.Hour), int(d.Minute), int(d.Second), int(d.Centisecond)*int(10*time.Millisecond), loc)
}
