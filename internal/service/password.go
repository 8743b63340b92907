package service

import "golang.org/x/crypto/bcrypt"

const defaultPasswordCost = 10

// PasswordHasher envuelve bcrypt. Se usa para contraseñas y para los códigos
// de verificación, que nunca se guardan en claro.
type PasswordHasher struct {
	cost int
}

func NewPasswordHasher(cost int) PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = defaultPasswordCost
	}
	return PasswordHasher{cost: cost}
}

func (h PasswordHasher) Hash(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (h PasswordHasher) Compare(hash, secret string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
