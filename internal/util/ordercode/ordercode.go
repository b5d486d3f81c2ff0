// Package ordercode builds the human readable order identifiers customers
// quote to operators: BLB-<unix seconds base36>-<customer base36, 4 chars>-<random, 4 chars>.
package ordercode

import (
	"crypto/rand"
	"encoding/binary"
	"strconv"
	"strings"
	"time"
)

const prefix = "BLB"

func New(customerID int64, now time.Time) string {
	return build(customerID, now, randomSuffix())
}

func build(customerID int64, now time.Time, rnd uint32) string {
	ts := strings.ToUpper(strconv.FormatInt(now.Unix(), 36))

	if customerID < 0 {
		customerID = -customerID
	}
	uid := strings.ToUpper(strconv.FormatInt(customerID, 36))
	if len(uid) > 4 {
		uid = uid[len(uid)-4:]
	}
	uid = leftPad(uid, 4)

	r := strings.ToUpper(strconv.FormatUint(uint64(rnd&0xFFFFF), 36))
	r = leftPad(r, 4)
	if len(r) > 4 {
		r = r[:4]
	}
	return prefix + "-" + ts + "-" + uid + "-" + r
}

func randomSuffix() uint32 {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return uint32(time.Now().UnixNano())
	}
	return binary.BigEndian.Uint32(b[:])
}

func leftPad(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return strings.Repeat("0", n-len(s)) + s
}

// Valid checks the shape of a code without trusting any part of it.
func Valid(code string) bool {
	parts := strings.Split(code, "-")
	if len(parts) != 4 || parts[0] != prefix {
		return false
	}
	for _, p := range parts[1:] {
		if p == "" {
			return false
		}
		for _, ch := range p {
			if !(ch >= '0' && ch <= '9' || ch >= 'A' && ch <= 'Z') {
				return false
			}
		}
	}
	return len(parts[2]) == 4 && len(parts[3]) == 4
}
