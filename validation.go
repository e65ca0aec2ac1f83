package pusher

import (
	"regexp"
	"strconv"
)

const (
	maxChannelNameLength = 200
	maxEventNameLength   = 200
	maxTriggerChannels   = 100
	maxBatchEvents       = 10
)

var (
	channelNamePattern = regexp.MustCompile(`^[A-Za-z0-9_\-=@,.;]+$`)
	socketIDPattern    = regexp.MustCompile(`^\d+\.\d+$`)
)

// ValidateChannelName checks that name is 1-200 characters from
// [A-Za-z0-9_\-=@,.;].
func ValidateChannelName(name string) error {
	if len(name) == 0 || len(name) > maxChannelNameLength || !channelNamePattern.MatchString(name) {
		return newValidationError(ErrInvalidChannelName, name)
	}
	return nil
}

// ValidateSocketID checks that id has the form <digits>.<digits>.
func ValidateSocketID(id string) error {
	if !socketIDPattern.MatchString(id) {
		return newValidationError(ErrInvalidSocketID, id)
	}
	return nil
}

// ValidateEventName checks that name is non-empty and at most 200 characters.
func ValidateEventName(name string) error {
	if name == "" {
		return newValidationError(ErrEmptyEventName, name)
	}
	if len(name) > maxEventNameLength {
		return newValidationError(ErrEventNameTooLong, name)
	}
	return nil
}

// ValidateChannels checks a trigger's channel list: 1-100 entries, each a
// valid channel name.
func ValidateChannels(channels []string) error {
	if len(channels) == 0 {
		return newValidationError(ErrNoChannels, "0")
	}
	if len(channels) > maxTriggerChannels {
		return newValidationError(ErrTooManyChannels, strconv.Itoa(len(channels)))
	}
	for _, channel := range channels {
		if err := ValidateChannelName(channel); err != nil {
			return err
		}
	}
	return nil
}

// ValidateData checks that a serialized event payload fits in limitKB
// kibibytes. A non-positive limit disables the check.
func ValidateData(data []byte, limitKB int) error {
	if limitKB > 0 && len(data) > limitKB*1024 {
		return newValidationError(ErrDataTooLarge, strconv.Itoa(len(data)))
	}
	return nil
}

// validateTrigger runs the checks shared by single and batch triggers.
func validateTrigger(channels []string, event string, socketID string) error {
	if err := ValidateChannels(channels); err != nil {
		return err
	}
	if err := ValidateEventName(event); err != nil {
		return err
	}
	if socketID != "" {
		if err := ValidateSocketID(socketID); err != nil {
			return err
		}
	}
	if len(channels) > 1 {
		for _, channel := range channels {
			if IsEncryptedChannel(channel) {
				return ErrEncryptedMultiChannel
			}
		}
	}
	return nil
}
