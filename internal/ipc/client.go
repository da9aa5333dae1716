package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the control socket at the given path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Librarian.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop asks the daemon process to shut down.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Librarian.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Sweep triggers an immediate spool sweep.
func (c *Client) Sweep() (*SweepResponse, error) {
	var resp SweepResponse
	if err := c.client.Call("Librarian.Sweep", SweepRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// List pages through the catalog; set Terms for a title search.
func (c *Client) List(req ListRequest) (*ListResponse, error) {
	var resp ListResponse
	if err := c.client.Call("Librarian.List", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Show fetches a single catalog item.
func (c *Client) Show(md5 string) (*ShowResponse, error) {
	var resp ShowResponse
	if err := c.client.Call("Librarian.Show", ShowRequest{MD5: md5}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Add ingests spooled zipballs by content id.
func (c *Client) Add(ids []string) (*AddResponse, error) {
	var resp AddResponse
	if err := c.client.Call("Librarian.Add", AddRequest{IDs: ids}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Remove deletes catalog items and their content trees.
func (c *Client) Remove(ids []string) (*RemoveResponse, error) {
	var resp RemoveResponse
	if err := c.client.Call("Librarian.Remove", RemoveRequest{IDs: ids}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Reload rebuilds the catalog from the content trees.
func (c *Client) Reload(clear bool) (*ReloadResponse, error) {
	var resp ReloadResponse
	if err := c.client.Call("Librarian.Reload", ReloadRequest{Clear: clear}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TagsAdd attaches tags to an item.
func (c *Client) TagsAdd(md5 string, tags []string) error {
	var resp TagsEditResponse
	return c.client.Call("Librarian.TagsAdd", TagsEditRequest{MD5: md5, Tags: tags}, &resp)
}

// TagsRemove detaches tags from an item.
func (c *Client) TagsRemove(md5 string, tags []string) error {
	var resp TagsEditResponse
	return c.client.Call("Librarian.TagsRemove", TagsEditRequest{MD5: md5, Tags: tags}, &resp)
}

// TagCloud fetches tag usage counts.
func (c *Client) TagCloud() (*TagCloudResponse, error) {
	var resp TagCloudResponse
	if err := c.client.Call("Librarian.TagCloud", TagCloudRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FacetSearch searches the facet archive.
func (c *Client) FacetSearch(terms, facetType string) (*FacetSearchResponse, error) {
	var resp FacetSearchResponse
	if err := c.client.Call("Librarian.FacetSearch", FacetSearchRequest{Terms: terms, FacetType: facetType}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FacetScan reindexes a content-relative directory.
func (c *Client) FacetScan(path string) error {
	var resp FacetScanResponse
	return c.client.Call("Librarian.FacetScan", FacetScanRequest{Path: path}, &resp)
}

// TestNotification triggers a notification test.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Librarian.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
