package social

import (
	"context"
	"strings"

	"github.com/rovshanmuradov/pumpbot/internal/apperr"
	"github.com/rovshanmuradov/pumpbot/internal/storage/models"
	"go.uber.org/zap"
)

// PostURLPrefix is the public address of a Moltbook post without its id.
const PostURLPrefix = "https://www.moltbook.com/post/"

// PostFetcher loads a post on behalf of its author.
type PostFetcher interface {
	FetchPost(ctx context.Context, postID, accessKey string) (*Post, error)
}

// LaunchRegistry is the registry surface the launcher writes through.
type LaunchRegistry interface {
	FindByPostID(ctx context.Context, postID string) (*models.TokenLaunch, error)
	CreateIfAbsent(ctx context.Context, rec *models.TokenLaunch) (bool, *models.TokenLaunch, error)
}

// LaunchRequest names the post to launch from.
type LaunchRequest struct {
	AccessKey string `json:"moltbook_key"`
	PostID    string `json:"post_id"`
}

// Rewards describes the fee split advertised to agents.
type Rewards struct {
	AgentShare     string `json:"agent_share"`
	LiquidityShare string `json:"liquidity_share"`
	PlatformShare  string `json:"platform_share"`
	AgentWallet    string `json:"agent_wallet"`
}

// LaunchResult is returned for a newly launched post.
type LaunchResult struct {
	Agent               string  `json:"agent"`
	PostID              string  `json:"post_id"`
	PostURL             string  `json:"post_url"`
	TokenAddress        string  `json:"token_address"`
	TxHash              string  `json:"tx_hash"`
	BondingCurveAddress string  `json:"bonding_curve_address"`
	DexScreenerURL      string  `json:"dexscreener_url"`
	ExplorerURL         string  `json:"explorer_url"`
	Rewards             Rewards `json:"rewards"`
}

const unknownAgent = "Unknown Agent"

// Launcher turns a Moltbook post into a registered token.
type Launcher struct {
	posts    PostFetcher
	creator  TokenCreator
	registry LaunchRegistry
	logger   *zap.Logger
}

func NewLauncher(posts PostFetcher, creator TokenCreator, registry LaunchRegistry, logger *zap.Logger) *Launcher {
	return &Launcher{
		posts:    posts,
		creator:  creator,
		registry: registry,
		logger:   logger.Named("social_launcher"),
	}
}

// Launch fetches the post, validates its embedded token data and creates the
// token once per post.
func (l *Launcher) Launch(ctx context.Context, req LaunchRequest) (*LaunchResult, error) {
	postID := strings.TrimSpace(req.PostID)
	if strings.TrimSpace(req.AccessKey) == "" || postID == "" {
		return nil, apperr.Validation("Missing required fields", "moltbook_key and post_id are required")
	}

	log := l.logger.With(zap.String("post_id", postID))

	post, err := l.posts.FetchPost(ctx, postID, req.AccessKey)
	if err != nil {
		return nil, err
	}

	data, err := ExtractTokenData(post.Content)
	if err != nil {
		log.Info("Post is not a launch request")
		return nil, err
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}

	existing, err := l.registry.FindByPostID(ctx, postID)
	if err != nil {
		return nil, apperr.Internal("Internal server error", err)
	}
	if existing != nil {
		return nil, alreadyLaunched(existing.Address)
	}

	created, err := l.creator.CreateToken(ctx, *data)
	if err != nil {
		log.Error("Token creation failed", zap.Error(err))
		return nil, apperr.Internal("Token deployment failed", err)
	}

	agent := post.Author.Name
	if agent == "" {
		agent = unknownAgent
	}
	rec := &models.TokenLaunch{
		Address:             created.TokenAddress,
		Name:                data.Name,
		Symbol:              data.Symbol,
		Description:         data.Description,
		Image:               data.Image,
		Website:             data.Website,
		Twitter:             data.Twitter,
		AgentName:           agent,
		AgentWallet:         data.Wallet,
		PostID:              &postID,
		PostURL:             PostURLPrefix + postID,
		Platform:            models.PlatformMoltbook,
		BondingCurveAddress: created.BondingCurveAddress,
		TotalSupply:         models.DefaultTotalSupply,
		DeployTxHash:        created.TxHash,
	}

	inserted, prior, err := l.registry.CreateIfAbsent(ctx, rec)
	if err != nil {
		return nil, apperr.Internal("Internal server error", err)
	}
	if !inserted {
		// another request for the same post won the race
		return nil, alreadyLaunched(prior.Address)
	}

	log.Info("Token launched from post",
		zap.String("agent", agent),
		zap.String("token", rec.Address))

	return &LaunchResult{
		Agent:               agent,
		PostID:              postID,
		PostURL:             rec.PostURL,
		TokenAddress:        rec.Address,
		TxHash:              rec.DeployTxHash,
		BondingCurveAddress: rec.BondingCurveAddress,
		DexScreenerURL:      "https://dexscreener.com/solana/" + rec.Address,
		ExplorerURL:         "https://solscan.io/token/" + rec.Address,
		Rewards: Rewards{
			AgentShare:     "60%",
			LiquidityShare: "30%",
			PlatformShare:  "10%",
			AgentWallet:    rec.AgentWallet,
		},
	}, nil
}

func alreadyLaunched(address string) *apperr.Error {
	return apperr.Conflict("Token already launched", "A token has already been launched from this post").
		WithDetail("token_address", address)
}
