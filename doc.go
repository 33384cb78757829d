/*
Package awsquery is a client for the AWS Query API family (EC2, RDS, ELB)
and for V4-signed REST endpoints such as S3 and IAM.

It has three layers:

  - the signature engines: Signature Version 2 (sorted, percent-encoded
    parameter string signed with HMAC-SHA256) and Signature Version 4
    (canonical request, string to sign, and the
    date/region/service/aws4_request signing-key cascade), including
    presigned URLs;
  - the action registry: a populate-once table mapping an API action name
    (e.g. DescribeVolumes) to a materialization directive: whole-response,
    fetch-one, or fetch-items with a container tag;
  - the materializer: parses the XML response body into a nested payload,
    forcing every tag named item (or member) into a sequence so that
    single-element and multi-element responses have the same shape, and
    instantiates the registered object type.

A minimal call:

	creds, err := awsquery.CredentialsFromEnv()
	if err != nil {
		// ...
	}
	client, err := awsquery.NewClient("https://ec2.eu-west-1.amazonaws.com", creds, "2016-11-15")
	if err != nil {
		// ...
	}
	volumes, err := client.DescribeVolumes(ctx, nil)

HTTP 400 responses decode into *Error, which Call returns as its error
value and also records on the client (LastError). Unregistered actions
never fail dispatch; they materialize as *Raw.
*/
package awsquery
