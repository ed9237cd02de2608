package indexer

import (
	"testing"

	"github.com/microcosm-cc/bluemonday"
	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	policy := bluemonday.StrictPolicy()

	assert.Equal(t, "Deep work & focus", CleanText(policy, "<p>Deep work</p><b>&amp; focus</b>"))
	assert.Equal(t, "line one line two", CleanText(policy, "line one<br>line   two"))
	assert.Equal(t, "", CleanText(policy, "<script>alert(1)</script>"))
}

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{"go", "focus"}, SplitTags(" go, ,focus "))
	assert.Equal(t, []string{}, SplitTags(""))
}
