package version

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo(t *testing.T) {
	info := Get()
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.True(t, strings.HasPrefix(info.String(), "codejoiner version "+Version+" (commit: "))
	assert.Equal(t, "codejoiner/"+Version+" ("+runtime.GOOS+"/"+runtime.GOARCH+")", info.UserAgent())
}
