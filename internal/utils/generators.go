package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateOrderNumber creates the externally visible order reference, e.g.
// FEST-1717171717-042817.
func GenerateOrderNumber() string {
	timestamp := time.Now().Unix()
	randomNum, _ := rand.Int(rand.Reader, big.NewInt(999999))
	return fmt.Sprintf("FEST-%d-%06d", timestamp, randomNum.Int64())
}

// GenerateTicketCode creates a unique ticket code. Uppercased UUID without
// dashes keeps it scannable and easy to read out at the gate.
func GenerateTicketCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}
