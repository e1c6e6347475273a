package connect

// Platform identifies a supported social network.
type Platform string

const (
	PlatformLinkedIn  Platform = "linkedin"
	PlatformTwitter   Platform = "twitter"
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformPinterest Platform = "pinterest"
	PlatformTikTok    Platform = "tiktok"
)

// Platforms returns the supported platforms in callback scan order.
func Platforms() []Platform {
	return []Platform{
		PlatformLinkedIn,
		PlatformTwitter,
		PlatformFacebook,
		PlatformInstagram,
		PlatformPinterest,
		PlatformTikTok,
	}
}

// ParsePlatform maps a raw string to a supported platform.
func ParsePlatform(s string) (Platform, bool) {
	p := Platform(s)
	if p.Valid() {
		return p, true
	}
	return "", false
}

func (p Platform) Valid() bool {
	switch p {
	case PlatformLinkedIn, PlatformTwitter, PlatformFacebook,
		PlatformInstagram, PlatformPinterest, PlatformTikTok:
		return true
	}
	return false
}

func (p Platform) String() string {
	return string(p)
}

// RequiresPKCE reports whether the platform's authorization server mandates
// Proof Key for Code Exchange.
func (p Platform) RequiresPKCE() bool {
	return p == PlatformTwitter
}

// ConnectedParam is the callback query parameter flagging that this
// platform's payload follows.
func (p Platform) ConnectedParam() string {
	return string(p) + "_connected"
}

// ProfileURL derives the public profile URL for an account. Deterministic
// given the same inputs.
func (p Platform) ProfileURL(accountID, username string) string {
	switch p {
	case PlatformLinkedIn:
		return "https://www.linkedin.com/in/" + accountID
	case PlatformTwitter:
		return "https://twitter.com/" + username
	case PlatformFacebook:
		return "https://facebook.com/" + accountID
	case PlatformInstagram:
		return "https://instagram.com/" + username
	case PlatformPinterest:
		return "https://pinterest.com/" + username
	case PlatformTikTok:
		return "https://tiktok.com/@" + username
	}
	return ""
}
