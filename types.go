package pusher

// Event is one entry of a batch trigger.
type Event struct {
	Channel  string
	Name     string
	Data     any
	SocketID string
}

// ChannelsParams filters a channel listing.
type ChannelsParams struct {
	FilterByPrefix string
	// Info lists extra attributes to return, e.g. "user_count".
	Info []string
}

// ChannelParams selects attributes returned for a single channel.
type ChannelParams struct {
	Info []string
}

// ChannelsList is the response of a channel listing.
type ChannelsList struct {
	Channels map[string]ChannelListItem `json:"channels"`
}

// ChannelListItem holds the requested attributes of a listed channel.
type ChannelListItem struct {
	UserCount int `json:"user_count,omitempty"`
}

// Channel describes a single channel.
type Channel struct {
	Name              string `json:"-"`
	Occupied          bool   `json:"occupied"`
	UserCount         int    `json:"user_count,omitempty"`
	SubscriptionCount int    `json:"subscription_count,omitempty"`
}

// Users lists the members of a presence channel.
type Users struct {
	List []User `json:"users"`
}

// User is a presence channel member.
type User struct {
	ID string `json:"id"`
}

type triggerBody struct {
	Name     string   `json:"name"`
	Channels []string `json:"channels"`
	Data     string   `json:"data"`
	SocketID string   `json:"socket_id,omitempty"`
}

type batchEvent struct {
	Channel  string `json:"channel"`
	Name     string `json:"name"`
	Data     string `json:"data"`
	SocketID string `json:"socket_id,omitempty"`
}

type batchBody struct {
	Batch []batchEvent `json:"batch"`
}
