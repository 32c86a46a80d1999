package oauth

import "strings"

// UserInfo is the provider-neutral identity produced by one successful exchange.
// UID is the provider subject and never the email.
type UserInfo struct {
	UID              string `json:"uid"`
	Email            string `json:"email"`
	ProviderUsername string `json:"providerUsername"`
}

func (u UserInfo) normalize() (UserInfo, error) {
	u.UID = strings.TrimSpace(u.UID)
	u.Email = strings.TrimSpace(u.Email)
	u.ProviderUsername = strings.TrimSpace(u.ProviderUsername)

	switch {
	case u.UID == "":
		return UserInfo{}, NewError(KindProviderExchange, "", errMissingSubject)
	case u.Email == "":
		return UserInfo{}, NewError(KindProviderExchange, "", errMissingEmail)
	}
	if u.ProviderUsername == "" {
		u.ProviderUsername = u.Email
	}
	return u, nil
}
