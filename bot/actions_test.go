package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAction(t *testing.T) {
	cases := []struct {
		data string
		want action
	}{
		{dataSpin, actionSpin},
		{dataDashboard, actionDashboard},
		{dataRefer, actionRefer},
		{dataWithdraw, actionWithdraw},
		{dataConfirmWithdraw, actionConfirmWithdraw},
		{dataHome, actionHome},
		{"", actionUnknown},
		{"bogus", actionUnknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, parseAction(tc.data), "data %q", tc.data)
	}
}
