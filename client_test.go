package awsquery

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/zeebo/assert"
)

type recordingHandler struct {
	lastBody    url.Values
	lastHeaders http.Header
	respond     func(action string, w http.ResponseWriter)
}

func (h *recordingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	h.lastBody, _ = url.ParseQuery(string(body))
	h.lastHeaders = r.Header.Clone()

	h.respond(h.lastBody.Get("Action"), w)
}

func newTestClient(t *testing.T, handler *recordingHandler, opts ...Option) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, exampleCredentials(t), "2016-11-15", opts...)
	assert.NoError(t, err)

	return client
}

func respondXML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestClientCall(t *testing.T) {
	ctx := context.Background()

	t.Run("V2 requests carry signed body parameters", func(t *testing.T) {
		handler := &recordingHandler{respond: func(_ string, w http.ResponseWriter) {
			respondXML(w, http.StatusOK, describeVolumesSingle)
		}}
		client := newTestClient(t, handler)

		volumes, err := client.DescribeVolumes(ctx, nil)
		assert.NoError(t, err)
		assert.Equal(t, 1, len(volumes))
		assert.Equal(t, "vol-1234567890abcdef0", volumes[0].ID())

		assert.Equal(t, "DescribeVolumes", handler.lastBody.Get("Action"))
		assert.Equal(t, "2016-11-15", handler.lastBody.Get("Version"))
		assert.Equal(t, "2", handler.lastBody.Get("SignatureVersion"))
		assert.That(t, handler.lastBody.Get("Signature") != "")
		assert.Equal(t, formContentType, handler.lastHeaders.Get("Content-Type"))
	})
	t.Run("V4 requests carry an Authorization header instead", func(t *testing.T) {
		handler := &recordingHandler{respond: func(_ string, w http.ResponseWriter) {
			respondXML(w, http.StatusOK, describeVolumesSingle)
		}}
		client := newTestClient(t, handler, WithSignatureV4(), WithContentChecksum(ChecksumCRC32))

		_, err := client.DescribeVolumes(ctx, nil)
		assert.NoError(t, err)

		assert.Equal(t, "", handler.lastBody.Get("Signature"))
		assert.Equal(t, "2016-11-15", handler.lastBody.Get("Version"))
		assert.That(t, handler.lastHeaders.Get("Authorization") != "")
		assert.That(t, handler.lastHeaders.Get("x-amz-checksum-crc32") != "")
	})
	t.Run("API errors are returned and remembered", func(t *testing.T) {
		handler := &recordingHandler{respond: func(_ string, w http.ResponseWriter) {
			respondXML(w, http.StatusBadRequest, ec2ErrorBody)
		}}
		client := newTestClient(t, handler)

		_, err := client.Call(ctx, "DescribeVolumes", map[string]string{"VolumeId.1": "vol-0"})
		assert.Error(t, err)

		var apiErr *Error
		assert.True(t, errors.As(err, &apiErr))
		assert.Equal(t, "InvalidVolume.NotFound", apiErr.Code())

		assert.True(t, client.IsError())
		assert.Equal(t, "InvalidVolume.NotFound", client.LastError().Code())
	})
	t.Run("a successful call clears the last error", func(t *testing.T) {
		fail := true
		handler := &recordingHandler{respond: func(_ string, w http.ResponseWriter) {
			if fail {
				respondXML(w, http.StatusBadRequest, ec2ErrorBody)
				return
			}
			respondXML(w, http.StatusOK, describeVolumesSingle)
		}}
		client := newTestClient(t, handler)

		_, err := client.Call(ctx, "DescribeVolumes", nil)
		assert.Error(t, err)
		assert.True(t, client.IsError())

		fail = false
		_, err = client.Call(ctx, "DescribeVolumes", nil)
		assert.NoError(t, err)
		assert.False(t, client.IsError())
		assert.Nil(t, client.LastError())
	})
	t.Run("unregistered actions come back as raw objects", func(t *testing.T) {
		handler := &recordingHandler{respond: func(_ string, w http.ResponseWriter) {
			respondXML(w, http.StatusOK, `<FrobnicateGadgetsResponse><requestId>x</requestId><gadget>g-1</gadget></FrobnicateGadgetsResponse>`)
		}}
		client := newTestClient(t, handler)

		objects, err := client.Call(ctx, "FrobnicateGadgets", nil)
		assert.NoError(t, err)
		assert.Equal(t, 1, len(objects))

		_, ok := objects[0].(*Raw)
		assert.True(t, ok)
	})
	t.Run("attachments look up their volume and instance lazily", func(t *testing.T) {
		const attachVolumeResponse = `<AttachVolumeResponse xmlns="http://ec2.amazonaws.com/doc/2016-11-15/">
  <requestId>59dbff89-35bd-4eac-99ed-be587EXAMPLE</requestId>
  <volumeId>vol-1234567890abcdef0</volumeId>
  <instanceId>i-1234567890abcdef0</instanceId>
  <device>/dev/sdh</device>
  <status>attaching</status>
</AttachVolumeResponse>`
		const describeInstancesResponse = `<DescribeInstancesResponse xmlns="http://ec2.amazonaws.com/doc/2016-11-15/">
  <requestId>fdcdcab1-ae5c-489e-9c33-4637c5dda355</requestId>
  <reservationSet>
    <item>
      <reservationId>r-1234567890abcdef0</reservationId>
      <instancesSet>
        <item>
          <instanceId>i-1234567890abcdef0</instanceId>
          <instanceType>t2.micro</instanceType>
        </item>
      </instancesSet>
    </item>
  </reservationSet>
</DescribeInstancesResponse>`

		handler := &recordingHandler{respond: func(action string, w http.ResponseWriter) {
			switch action {
			case "AttachVolume":
				respondXML(w, http.StatusOK, attachVolumeResponse)
			case "DescribeVolumes":
				respondXML(w, http.StatusOK, describeVolumesSingle)
			case "DescribeInstances":
				respondXML(w, http.StatusOK, describeInstancesResponse)
			default:
				respondXML(w, http.StatusBadRequest, ec2ErrorBody)
			}
		}}
		client := newTestClient(t, handler)

		attachment, err := client.AttachVolume(ctx, "vol-1234567890abcdef0", "i-1234567890abcdef0", "/dev/sdh")
		assert.NoError(t, err)
		assert.Equal(t, "attaching", attachment.Status())

		volume, err := attachment.Volume(ctx)
		assert.NoError(t, err)
		assert.NotNil(t, volume)
		assert.Equal(t, "vol-1234567890abcdef0", volume.ID())
		assert.Equal(t, "vol-1234567890abcdef0", handler.lastBody.Get("VolumeId.1"))

		instance, err := attachment.Instance(ctx)
		assert.NoError(t, err)
		assert.NotNil(t, instance)
		assert.Equal(t, "t2.micro", instance.Type())
		assert.Equal(t, "i-1234567890abcdef0", handler.lastBody.Get("InstanceId.1"))
	})
	t.Run("transport failures are not API errors", func(t *testing.T) {
		handler := &recordingHandler{respond: func(_ string, w http.ResponseWriter) {
			respondXML(w, http.StatusOK, describeVolumesSingle)
		}}
		client := newTestClient(t, handler)
		client.endpoint, _ = url.Parse("http://127.0.0.1:1")

		_, err := client.Call(ctx, "DescribeVolumes", nil)
		assert.Error(t, err)
		assert.That(t, errors.Is(err, ErrTransport))
		assert.False(t, client.IsError())
	})
	t.Run("a transport failure does not report an older API error", func(t *testing.T) {
		handler := &recordingHandler{respond: func(_ string, w http.ResponseWriter) {
			respondXML(w, http.StatusBadRequest, ec2ErrorBody)
		}}
		client := newTestClient(t, handler)

		_, err := client.Call(ctx, "DescribeVolumes", nil)
		assert.Error(t, err)
		assert.True(t, client.IsError())

		client.endpoint, _ = url.Parse("http://127.0.0.1:1")

		_, err = client.Call(ctx, "DescribeVolumes", nil)
		assert.That(t, errors.Is(err, ErrTransport))
		assert.False(t, client.IsError())
		assert.Nil(t, client.LastError())
	})
	t.Run("empty credentials fail at construction", func(t *testing.T) {
		_, err := NewClient("https://ec2.amazonaws.com", Credentials{}, "2016-11-15")
		assert.That(t, err == ErrMissingCredentials)
	})
}

func TestClientCallOne(t *testing.T) {
	ctx := context.Background()

	handler := &recordingHandler{respond: func(_ string, w http.ResponseWriter) {
		respondXML(w, http.StatusOK, `<CreateVolumeResponse xmlns="http://ec2.amazonaws.com/doc/2016-11-15/">
  <requestId>59dbff89-35bd-4eac-99ed-be587EXAMPLE</requestId>
  <volumeId>vol-1234567890abcdef0</volumeId>
  <size>80</size>
  <status>creating</status>
  <availabilityZone>us-east-1a</availabilityZone>
</CreateVolumeResponse>`)
	}}
	client := newTestClient(t, handler)

	volume, err := client.CreateVolume(ctx, map[string]string{
		"Size":             "80",
		"AvailabilityZone": "us-east-1a",
	})
	assert.NoError(t, err)
	assert.NotNil(t, volume)
	assert.Equal(t, "vol-1234567890abcdef0", volume.ID())
	assert.Equal(t, "creating", volume.Status())
	assert.Equal(t, "80", handler.lastBody.Get("Size"))
}
