package models

import "strings"

type Platform string

const (
	PlatformTwitch  Platform = "twitch"
	PlatformYoutube Platform = "youtube"
	PlatformTiktok  Platform = "tiktok"
)

var Platforms = []Platform{PlatformTwitch, PlatformYoutube, PlatformTiktok}

func ParsePlatform(s string) (Platform, bool) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case PlatformTwitch, PlatformYoutube, PlatformTiktok:
		return p, true
	}
	return "", false
}

func (p Platform) String() string {
	return string(p)
}
