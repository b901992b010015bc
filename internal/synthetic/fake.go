package synthetic

import (
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
)

// attempts before a colliding unique value is disambiguated with a suffix
const uniqueAttempts = 32

var (
	timestampFrom = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)
	timestampTo   = time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC)
)

// Faker is the per-run source of synthetic values. Two fakers with the same
// non-zero seed produce the same values in the same order.
type Faker struct {
	f *gofakeit.Faker
}

// NewFaker returns a faker seeded with seed; 0 picks a random seed.
func NewFaker(seed uint64) *Faker {
	return &Faker{f: gofakeit.New(seed)}
}

// Emails returns n distinct email addresses.
func (fk *Faker) Emails(n int) []string { return unique(n, fk.f.Email) }

// Usernames returns n distinct usernames.
func (fk *Faker) Usernames(n int) []string { return unique(n, fk.f.Username) }

func (fk *Faker) Password() string {
	return fk.f.Password(true, true, true, false, false, 10)
}

func (fk *Faker) Name() string  { return fk.f.Name() }
func (fk *Faker) Phone() string { return fk.f.Phone() }

func (fk *Faker) Address() Address {
	return Address{
		StreetName:   fk.f.StreetName(),
		StreetNumber: fk.f.StreetNumber(),
		City:         fk.f.City(),
		Country:      fk.f.Country(),
		PostalCode:   fk.f.Zip(),
	}
}

// Gender returns "Male" or "Female".
func (fk *Faker) Gender() string {
	if fk.f.IntRange(0, 1) == 0 {
		return "Male"
	}
	return "Female"
}

// Nationality returns a language name; there is no nationality generator.
func (fk *Faker) Nationality() string { return fk.f.Language() }

// Timestamp returns a UTC timestamp between 1970 and 2021, truncated to
// seconds.
func (fk *Faker) Timestamp() time.Time {
	return fk.f.DateRange(timestampFrom, timestampTo).UTC().Truncate(time.Second)
}

// Money returns an amount in [0.00, 99.99] with two decimal places.
func (fk *Faker) Money() decimal.Decimal {
	return decimal.New(int64(fk.f.IntRange(0, 9999)), -2)
}

// IntRange returns an int in [lo, hi].
func (fk *Faker) IntRange(lo, hi int) int {
	return fk.f.IntRange(lo, hi)
}

func unique(n int, next func() string) []string {
	seen := make(map[string]struct{}, n)
	out := make([]string, 0, n)
	misses := 0
	for len(out) < n {
		v := next()
		if _, dup := seen[v]; dup {
			misses++
			if misses < uniqueAttempts {
				continue
			}
			v += strconv.Itoa(len(out))
			if _, dup := seen[v]; dup {
				continue
			}
		}
		misses = 0
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
