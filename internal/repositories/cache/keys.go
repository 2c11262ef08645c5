package cache

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

type EntityType string

const (
	EntityUser     EntityType = "user"
	EntityMerchant EntityType = "merchant"
	EntityCard     EntityType = "card"
)

const chargebackPrefix = "chargeback"

// GenerateKey creates a standardized chargeback flag key
func GenerateKey(entity EntityType, value interface{}) string {
	return fmt.Sprintf("%s:%s:%v", chargebackPrefix, entity, value)
}

// CardKey hashes the card number so masked PANs never appear in the keyspace.
func CardKey(cardNumber string) string {
	sum := blake2b.Sum256([]byte(cardNumber))
	return GenerateKey(EntityCard, hex.EncodeToString(sum[:16]))
}

// ChargebackKeys returns the user, merchant and card flag keys for one transaction.
func ChargebackKeys(userID, merchantID int64, cardNumber string) []string {
	return []string{
		GenerateKey(EntityUser, userID),
		GenerateKey(EntityMerchant, merchantID),
		CardKey(cardNumber),
	}
}
