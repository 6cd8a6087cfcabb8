package docker

import (
	"bytes"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

// DefaultOutputLimit caps each captured stream.
const DefaultOutputLimit = 1 << 20

// consolePrelude makes console.log print each call as one JSON string line, with objects
// rendered by JSON.stringify(arg, null, 2). It is kept on one line so user code starts on line 2.
const consolePrelude = `{const fmt=a=>a.map(x=>typeof x==='object'?JSON.stringify(x,null,2):String(x)).join(' ');` +
	`console.log=(...a)=>{process.stdout.write(JSON.stringify(fmt(a))+'\n')};}`

var consoleJSON = jsoniter.ConfigCompatibleWithStandardLibrary

func nodeCommand(code string) []string {
	return []string{"node", "--disallow-code-generation-from-strings", "-e", consolePrelude + "\n" + code}
}

// decodeConsole turns prelude output back into one entry per console.log call.
// Lines written some other way are kept verbatim.
func decodeConsole(stdout string) []string {
	stdout = strings.TrimRight(strings.ReplaceAll(stdout, "\r\n", "\n"), "\n")
	if stdout == "" {
		return []string{}
	}
	lines := strings.Split(stdout, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		var entry string
		if strings.HasPrefix(line, `"`) && consoleJSON.UnmarshalFromString(line, &entry) == nil {
			out = append(out, entry)
			continue
		}
		out = append(out, line)
	}
	return out
}

// cappedBuffer keeps the first max bytes written to it and reports the rest as dropped.
// onFull runs once, the first time a write does not fit.
type cappedBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	max       int
	truncated bool
	onFull    func()
}

func newCappedBuffer(max int, onFull func()) *cappedBuffer {
	return &cappedBuffer{max: max, onFull: onFull}
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	room := c.max - c.buf.Len()
	if len(p) <= room {
		c.buf.Write(p)
		return len(p), nil
	}
	if room > 0 {
		c.buf.Write(p[:room])
	}
	if !c.truncated {
		c.truncated = true
		if c.onFull != nil {
			c.onFull()
		}
	}
	return len(p), nil
}

func (c *cappedBuffer) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

func (c *cappedBuffer) Truncated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.truncated
}
