package web

// Profile is the live-roster view of a member shown on the dashboard.
type Profile struct {
	DisplayName string
	AvatarURL   string
}

// Option is a role or channel choice rendered in the settings form.
type Option struct {
	ID   string
	Name string
}

// GuildDirectory is what the dashboard needs from the live guild. The bot
// implements it over its gateway session.
type GuildDirectory interface {
	MemberProfile(userID string) (Profile, bool)
	RoleOptions() ([]Option, error)
	ChannelOptions() ([]Option, error)
}
