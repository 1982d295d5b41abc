package payu

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// PayU signs requests with a salted SHA-512 over a pipe-joined field
// sequence. The request hash runs key-first; the response hash runs the
// same fields in reverse, salt-first, with the transaction status inserted
// after the salt. The udf and reserved slots are unused here and hash as
// empty fields.

func requestHash(key, salt, txnid, amount, productinfo, firstname, email string) string {
	fields := []string{
		key, txnid, amount, productinfo, firstname, email,
		"", "", "", "", "", // udf1..udf5
		"", "", "", "", "", // reserved
		salt,
	}
	return sha512Hex(strings.Join(fields, "|"))
}

func responseHash(key, salt, status, email, firstname, productinfo, amount, txnid string) string {
	fields := []string{
		salt, status,
		"", "", "", "", "", // reserved, reversed
		"", "", "", "", "", // udf5..udf1
		email, firstname, productinfo, amount, txnid, key,
	}
	return sha512Hex(strings.Join(fields, "|"))
}

func commandHash(key, salt, command, var1 string) string {
	return sha512Hex(strings.Join([]string{key, command, var1, salt}, "|"))
}

func sha512Hex(payload string) string {
	sum := sha512.Sum512([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// digestEqual compares two hex digests in constant time.
func digestEqual(expected, claimed string) bool {
	e, err := hex.DecodeString(expected)
	if err != nil {
		return false
	}
	c, err := hex.DecodeString(strings.ToLower(claimed))
	if err != nil || len(e) != len(c) {
		return false
	}
	return subtle.ConstantTimeCompare(e, c) == 1
}
