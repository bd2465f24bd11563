package bearer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPduType_String(t *testing.T) {
	cases := map[PduType]string{
		PduTypeNetwork:            "networkPdu",
		PduTypeMeshBeacon:         "meshBeacon",
		PduTypeProxyConfiguration: "proxyConfiguration",
		PduTypeProvisioning:       "provisioningPdu",
		PduType(0xFF):             "unknown",
	}
	for typ, want := range cases {
		assert.Equal(t, want, typ.String())
	}
}

func TestInboundDispatch_NilHandlerIsNoop(t *testing.T) {
	var d inboundDispatch
	assert.NotPanics(t, func() { d.dispatch([]byte{1}, PduTypeNetwork) })
}

func TestInboundDispatch_DeliversToSetHandler(t *testing.T) {
	var d inboundDispatch
	var gotPDU []byte
	var gotType PduType
	d.SetInboundHandler(func(pdu []byte, typ PduType) {
		gotPDU = pdu
		gotType = typ
	})

	d.dispatch([]byte{1, 2, 3}, PduTypeMeshBeacon)
	assert.Equal(t, []byte{1, 2, 3}, gotPDU)
	assert.Equal(t, PduTypeMeshBeacon, gotType)
}
