/*
Copyright SUSE LLC.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package eyecandy decorates user facing messages with emojis.
package eyecandy

import (
	"fmt"
	"regexp"

	"github.com/kyokomi/emoji/v2"
)

var shortCode = regexp.MustCompile(`:[a-zA-Z0-9-_+]+?:`)

// ESPrintf formats like fmt.Sprintf, rendering emoji short codes such as
// :package: or dropping them when emojisDisabled is set.
func ESPrintf(emojisDisabled bool, format string, v ...interface{}) string {
	if emojisDisabled {
		return fmt.Sprintf(removeEmojiFromString(format), v...)
	}
	return emoji.Sprintf(format, v...)
}

// ESPrint is ESPrintf without formatting.
func ESPrint(emojisDisabled bool, s string) string {
	if emojisDisabled {
		return removeEmojiFromString(s)
	}
	return emoji.Sprint(s)
}

// removeEmojiFromString drops known short codes only, so that text such
// as epochs in "1:2:" survives.
func removeEmojiFromString(s string) string {
	codes := emoji.CodeMap()
	return shortCode.ReplaceAllStringFunc(s, func(code string) string {
		if _, ok := codes[code]; ok {
			return ""
		}
		return code
	})
}
