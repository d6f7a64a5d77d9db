package sales

import (
	"fmt"
	"strings"
)

// SongType 歌曲类型，铸造时确定，之后不可变
type SongType uint8

const (
	SongTypeBirthday SongType = iota // 生日歌
	SongTypeNatal                    // 星盘歌
)

func (t SongType) String() string {
	switch t {
	case SongTypeBirthday:
		return "birthday"
	case SongTypeNatal:
		return "natal"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// ParseSongType 解析歌曲类型字符串
func ParseSongType(s string) (SongType, error) {
	switch strings.ToLower(s) {
	case "birthday":
		return SongTypeBirthday, nil
	case "natal":
		return SongTypeNatal, nil
	default:
		return 0, fmt.Errorf("%w: unknown song type %q", ErrValidation, s)
	}
}

// SongTypes 所有歌曲类型
func SongTypes() []SongType {
	return []SongType{SongTypeBirthday, SongTypeNatal}
}
