package users

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleStudent      Role = "student"
	RoleOrganization Role = "organization"
)

func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleOrganization
}

// User is an identity record. The role never changes after registration.
type User struct {
	ID                     primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	WalletAddress          string             `bson:"walletAddress" json:"walletAddress"`
	Name                   string             `bson:"name" json:"name"`
	UserType               Role               `bson:"userType" json:"userType"`
	Password               string             `bson:"password" json:"-"`
	Email                  string             `bson:"email" json:"email"`
	IsBlockchainRegistered bool               `bson:"isBlockchainRegistered" json:"isBlockchainRegistered"`
	CreatedAt              time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt              time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Summary is the public projection of a user shown on the other side of a request.
type Summary struct {
	ID            primitive.ObjectID `bson:"_id" json:"_id"`
	Name          string             `bson:"name" json:"name"`
	WalletAddress string             `bson:"walletAddress" json:"walletAddress"`
	Email         string             `bson:"email,omitempty" json:"email,omitempty"`
}

func (u *User) Summary() Summary {
	return Summary{ID: u.ID, Name: u.Name, WalletAddress: u.WalletAddress, Email: u.Email}
}

// NormalizeWallet lowercases and trims a wallet address.
func NormalizeWallet(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
