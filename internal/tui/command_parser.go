package tui

import (
	"regexp"
	"strings"
)

// CommandType 命令类型
type CommandType int

const (
	CommandTypeUnknown CommandType = iota
	CommandTypeUpload
	CommandTypeClear
	CommandTypeExport
	CommandTypeCopy
	CommandTypeGo
	CommandTypeHelp
)

// Command 解析后的命令
type Command struct {
	Type CommandType
	Raw  string
	Arg  string
}

// CommandParser 斜杠命令解析器
type CommandParser struct {
	patterns []commandPattern
}

type commandPattern struct {
	typ CommandType
	re  *regexp.Regexp
}

// NewCommandParser 创建新的命令解析器
func NewCommandParser() *CommandParser {
	return &CommandParser{
		patterns: []commandPattern{
			{CommandTypeUpload, regexp.MustCompile(`(?i)^/(?:upload|open)(?:\s+(.+))?$`)},
			{CommandTypeClear, regexp.MustCompile(`(?i)^/(?:clear|reset)\s*$`)},
			{CommandTypeExport, regexp.MustCompile(`(?i)^/export(?:\s+(\S+))?\s*$`)},
			{CommandTypeCopy, regexp.MustCompile(`(?i)^/copy(?:\s+(\S+))?\s*$`)},
			{CommandTypeGo, regexp.MustCompile(`(?i)^/(?:go|goto)\s+(\S+)\s*$`)},
			{CommandTypeHelp, regexp.MustCompile(`(?i)^/(?:help|\?)\s*$`)},
		},
	}
}

// Parse 解析命令字符串；不是命令时返回 nil，未知的斜杠命令返回 Unknown
func (p *CommandParser) Parse(input string) *Command {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") || len(input) < 2 {
		return nil
	}

	for _, pattern := range p.patterns {
		if matches := pattern.re.FindStringSubmatch(input); matches != nil {
			cmd := &Command{Type: pattern.typ, Raw: input}
			if len(matches) > 1 {
				cmd.Arg = strings.TrimSpace(matches[1])
			}
			return cmd
		}
	}

	// "/" 后紧跟空格时当作普通文本
	if input[1] == ' ' {
		return nil
	}
	return &Command{Type: CommandTypeUnknown, Raw: input}
}

// IsCommand 检查字符串是否为命令
func (p *CommandParser) IsCommand(input string) bool {
	return p.Parse(input) != nil
}

// FormatCommandType 格式化命令类型为字符串
func FormatCommandType(cmdType CommandType) string {
	switch cmdType {
	case CommandTypeUpload:
		return "UPLOAD"
	case CommandTypeClear:
		return "CLEAR"
	case CommandTypeExport:
		return "EXPORT"
	case CommandTypeCopy:
		return "COPY"
	case CommandTypeGo:
		return "GO"
	case CommandTypeHelp:
		return "HELP"
	default:
		return "UNKNOWN"
	}
}
