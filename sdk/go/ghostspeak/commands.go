package ghostspeak

import (
	"context"

	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/keys"
)

// Typed wrappers for the common flows. Each struct mirrors the wire
// shape of its command; less common commands go through Submit directly.

type RegisterAgentParams struct {
	Owner        keys.Pubkey `json:"owner"`
	Name         string      `json:"name"`
	Description  string      `json:"description"`
	Capabilities []string    `json:"capabilities,omitempty"`
	Pricing      uint8       `json:"pricing"`
	GenomeHash   string      `json:"genome_hash,omitempty"`
	MetadataURI  string      `json:"metadata_uri"`
}

func (c *Client) RegisterAgent(ctx context.Context, p RegisterAgentParams, owner *keys.Keypair) (*SubmitResult, error) {
	return c.Submit(ctx, "register_agent", p, owner)
}

type CreateWorkOrderParams struct {
	Client        keys.Pubkey `json:"client"`
	Provider      keys.Pubkey `json:"provider"`
	OrderID       uint64      `json:"order_id"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	Requirements  []string    `json:"requirements,omitempty"`
	PaymentAmount uint64      `json:"payment_amount"`
	PaymentToken  keys.Pubkey `json:"payment_token"`
	Deadline      int64       `json:"deadline"`
}

func (c *Client) CreateWorkOrder(ctx context.Context, p CreateWorkOrderParams, client *keys.Keypair) (*SubmitResult, error) {
	return c.Submit(ctx, "create_work_order", p, client)
}

type workOrderRef struct {
	Client    keys.Pubkey `json:"client"`
	WorkOrder keys.Pubkey `json:"work_order"`
}

func (c *Client) OpenWorkOrder(ctx context.Context, workOrder keys.Pubkey, client *keys.Keypair) (*SubmitResult, error) {
	return c.Submit(ctx, "open_work_order", workOrderRef{Client: client.Public, WorkOrder: workOrder}, client)
}

func (c *Client) FundEscrow(ctx context.Context, workOrder keys.Pubkey, client *keys.Keypair) (*SubmitResult, error) {
	return c.Submit(ctx, "fund_escrow", workOrderRef{Client: client.Public, WorkOrder: workOrder}, client)
}

type SubmitWorkDeliveryParams struct {
	Provider     keys.Pubkey `json:"provider"`
	WorkOrder    keys.Pubkey `json:"work_order"`
	Deliverables []uint8     `json:"deliverables"`
	IpfsHash     string      `json:"ipfs_hash"`
	MetadataURI  string      `json:"metadata_uri"`
}

func (c *Client) SubmitWorkDelivery(ctx context.Context, p SubmitWorkDeliveryParams, provider *keys.Keypair) (*SubmitResult, error) {
	return c.Submit(ctx, "submit_work_delivery", p, provider)
}

type providerOrderRef struct {
	Provider  keys.Pubkey `json:"provider"`
	WorkOrder keys.Pubkey `json:"work_order"`
}

func (c *Client) StartReview(ctx context.Context, workOrder keys.Pubkey, provider *keys.Keypair) (*SubmitResult, error) {
	return c.Submit(ctx, "start_review", providerOrderRef{Provider: provider.Public, WorkOrder: workOrder}, provider)
}

func (c *Client) ApproveDelivery(ctx context.Context, workOrder keys.Pubkey, client *keys.Keypair) (*SubmitResult, error) {
	return c.Submit(ctx, "approve_delivery", workOrderRef{Client: client.Public, WorkOrder: workOrder}, client)
}

func (c *Client) ReleasePayment(ctx context.Context, workOrder keys.Pubkey, client *keys.Keypair) (*SubmitResult, error) {
	return c.Submit(ctx, "release_payment", workOrderRef{Client: client.Public, WorkOrder: workOrder}, client)
}

func (c *Client) CancelWorkOrder(ctx context.Context, workOrder keys.Pubkey, client *keys.Keypair) (*SubmitResult, error) {
	return c.Submit(ctx, "cancel_work_order", workOrderRef{Client: client.Public, WorkOrder: workOrder}, client)
}

type CreateServiceAuctionParams struct {
	Creator         keys.Pubkey `json:"creator"`
	Agent           keys.Pubkey `json:"agent"`
	AuctionID       uint64      `json:"auction_id"`
	AuctionType     uint8       `json:"auction_type"`
	StartingPrice   uint64      `json:"starting_price,omitempty"`
	ReservePrice    uint64      `json:"reserve_price"`
	EndTime         int64       `json:"end_time"`
	MinBidIncrement uint64      `json:"min_bid_increment"`
	MetadataURI     string      `json:"metadata_uri,omitempty"`
}

func (c *Client) CreateServiceAuction(ctx context.Context, p CreateServiceAuctionParams, creator *keys.Keypair) (*SubmitResult, error) {
	return c.Submit(ctx, "create_service_auction", p, creator)
}

type PlaceAuctionBidParams struct {
	Bidder  keys.Pubkey `json:"bidder"`
	Auction keys.Pubkey `json:"auction"`
	Amount  uint64      `json:"amount"`
}

func (c *Client) PlaceAuctionBid(ctx context.Context, p PlaceAuctionBidParams, bidder *keys.Keypair) (*SubmitResult, error) {
	return c.Submit(ctx, "place_auction_bid", p, bidder)
}

type FileDisputeParams struct {
	Complainant keys.Pubkey `json:"complainant"`
	WorkOrder   keys.Pubkey `json:"work_order"`
	Reason      string      `json:"reason"`
}

func (c *Client) FileDispute(ctx context.Context, p FileDisputeParams, complainant *keys.Keypair) (*SubmitResult, error) {
	return c.Submit(ctx, "file_dispute", p, complainant)
}
