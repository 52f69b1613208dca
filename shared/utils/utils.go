package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	PrefixUser    = "usr"
	PrefixAccount = "acc"
	PrefixRecord  = "rec"
	PrefixReport  = "rpt"
	PrefixSession = "ses"
	PrefixMessage = "msg"
)

const idCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateID generates a unique ID with the given prefix, e.g. "usr-Ab3dE5gH9k".
func GenerateID(prefix string) string {
	const length = 10

	result := make([]byte, length)
	for i := range result {
		num, _ := rand.Int(rand.Reader, big.NewInt(int64(len(idCharset))))
		result[i] = idCharset[num.Int64()]
	}

	return fmt.Sprintf("%s-%s", prefix, string(result))
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword checks if a password matches a hash
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// HasPrefix reports whether id looks like an ID generated with prefix.
func HasPrefix(id, prefix string) bool {
	rest, ok := strings.CutPrefix(id, prefix+"-")
	return ok && rest != ""
}

func ValidateUserID(id string) bool    { return HasPrefix(id, PrefixUser) }
func ValidateAccountID(id string) bool { return HasPrefix(id, PrefixAccount) }
func ValidateRecordID(id string) bool  { return HasPrefix(id, PrefixRecord) }
func ValidateSessionID(id string) bool { return HasPrefix(id, PrefixSession) }
func ValidateReportID(id string) bool  { return HasPrefix(id, PrefixReport) }

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,32}$`)

func ValidateUsername(username string) bool {
	return usernamePattern.MatchString(username)
}
