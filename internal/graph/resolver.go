package graph

import (
	"context"
	"log/slog"

	"github.com/graph-gophers/graphql-go"

	"github.com/msomdec/recall/internal/domain"
	"github.com/msomdec/recall/internal/service"
)

// Limiter throttles login attempts per client.
type Limiter interface {
	Allow(key string) bool
}

// Config holds the access policy applied by the resolvers.
type Config struct {
	// RequireAuth rejects anonymous callers. When false they act as AnonymousUser.
	RequireAuth   bool
	AnonymousUser string
	// LoginLimiter is optional.
	LoginLimiter Limiter
}

// Resolver is the root resolver for both Query and Mutation.
type Resolver struct {
	cards *service.CardService
	auth  *service.AuthService
	cfg   Config
	log   *slog.Logger
}

// NewResolver creates a new Resolver.
func NewResolver(cards *service.CardService, auth *service.AuthService, cfg Config, log *slog.Logger) *Resolver {
	return &Resolver{
		cards: cards,
		auth:  auth,
		cfg:   cfg,
		log:   log.With(slog.String("component", "graphql")),
	}
}

// authorize returns the calling user, or the anonymous user when the policy allows it.
func (r *Resolver) authorize(ctx context.Context) (string, error) {
	if user, ok := sessionFrom(ctx).User(); ok {
		return user, nil
	}
	if r.cfg.RequireAuth {
		return "", domain.ErrUnauthenticated
	}
	return r.cfg.AnonymousUser, nil
}

func (r *Resolver) Login(ctx context.Context, args struct {
	UserName string
	Password string
}) (*sessionResolver, error) {
	session := sessionFrom(ctx)
	if r.cfg.LoginLimiter != nil && !r.cfg.LoginLimiter.Allow(session.ClientIP()) {
		r.log.WarnContext(ctx, "login rate limited", slog.String("client", session.ClientIP()))
		return nil, r.clientError(ctx, "login", domain.ErrRateLimited)
	}

	result, err := r.auth.Login(ctx, args.UserName, args.Password)
	if err != nil {
		return nil, r.clientError(ctx, "login", err)
	}
	session.Start(result.Token, result.ExpiresAt)
	return &sessionResolver{result: result}, nil
}

func (r *Resolver) Logout(ctx context.Context) (bool, error) {
	sessionFrom(ctx).End()
	return true, nil
}

func (r *Resolver) ReadCard(ctx context.Context, args struct{ ID graphql.ID }) (*cardResolver, error) {
	if _, err := r.authorize(ctx); err != nil {
		return nil, r.clientError(ctx, "readCard", err)
	}
	card, err := r.cards.Read(ctx, string(args.ID))
	if err != nil {
		return nil, r.clientError(ctx, "readCard", err)
	}
	return newCardResolver(card), nil
}

func (r *Resolver) Cards(ctx context.Context, args struct{ Substring string }) ([]*cardResolver, error) {
	if _, err := r.authorize(ctx); err != nil {
		return nil, r.clientError(ctx, "cards", err)
	}
	cards, err := r.cards.Search(ctx, args.Substring)
	if err != nil {
		return nil, r.clientError(ctx, "cards", err)
	}
	domain.SortByID(cards)

	resolvers := make([]*cardResolver, len(cards))
	for i := range cards {
		resolvers[i] = &cardResolver{card: cards[i]}
	}
	return resolvers, nil
}

func (r *Resolver) FindNextCard(ctx context.Context) (*cardResolver, error) {
	if _, err := r.authorize(ctx); err != nil {
		return nil, r.clientError(ctx, "findNextCard", err)
	}
	card, err := r.cards.NextDue(ctx)
	if err != nil {
		return nil, r.clientError(ctx, "findNextCard", err)
	}
	return newCardResolver(card), nil
}

func (r *Resolver) AutoSave(ctx context.Context) (*autoSaveResolver, error) {
	if _, err := r.authorize(ctx); err != nil {
		return nil, r.clientError(ctx, "autoSave", err)
	}
	draft, err := r.cards.ReadAutoSave(ctx)
	if err != nil {
		return nil, r.clientError(ctx, "autoSave", err)
	}
	return newAutoSaveResolver(draft), nil
}

func (r *Resolver) CreateCard(ctx context.Context, args struct {
	Prompt   string
	Solution string
}) (*cardResolver, error) {
	user, err := r.authorize(ctx)
	if err != nil {
		return nil, r.clientError(ctx, "createCard", err)
	}
	card, err := r.cards.Create(ctx, args.Prompt, args.Solution)
	if err != nil {
		return nil, r.clientError(ctx, "createCard", err)
	}
	r.log.InfoContext(ctx, "card created", slog.String("user", user), slog.String("id", card.ID))
	return newCardResolver(card), nil
}

func (r *Resolver) UpdateCard(ctx context.Context, args struct {
	ID       graphql.ID
	Prompt   *string
	Solution *string
	IsMinor  *bool
}) (*cardResolver, error) {
	if _, err := r.authorize(ctx); err != nil {
		return nil, r.clientError(ctx, "updateCard", err)
	}
	isMinor := args.IsMinor != nil && *args.IsMinor
	card, err := r.cards.Update(ctx, string(args.ID),
		domain.FromPtr(args.Prompt), domain.FromPtr(args.Solution), isMinor)
	if err != nil {
		return nil, r.clientError(ctx, "updateCard", err)
	}
	return newCardResolver(card), nil
}

func (r *Resolver) DeleteCard(ctx context.Context, args struct{ ID graphql.ID }) (bool, error) {
	user, err := r.authorize(ctx)
	if err != nil {
		return false, r.clientError(ctx, "deleteCard", err)
	}
	existed, err := r.cards.Delete(ctx, string(args.ID))
	if err != nil {
		return false, r.clientError(ctx, "deleteCard", err)
	}
	if existed {
		r.log.InfoContext(ctx, "card deleted", slog.String("user", user), slog.String("id", string(args.ID)))
	}
	return existed, nil
}

type cardOp func(*service.CardService, context.Context, string) (*domain.Card, error)

func (r *Resolver) cardOp(ctx context.Context, name string, id graphql.ID, op cardOp) (*cardResolver, error) {
	if _, err := r.authorize(ctx); err != nil {
		return nil, r.clientError(ctx, name, err)
	}
	card, err := op(r.cards, ctx, string(id))
	if err != nil {
		return nil, r.clientError(ctx, name, err)
	}
	return newCardResolver(card), nil
}

func (r *Resolver) SetOk(ctx context.Context, args struct{ ID graphql.ID }) (*cardResolver, error) {
	return r.cardOp(ctx, "setOk", args.ID, (*service.CardService).SetOk)
}

func (r *Resolver) SetFailed(ctx context.Context, args struct{ ID graphql.ID }) (*cardResolver, error) {
	return r.cardOp(ctx, "setFailed", args.ID, (*service.CardService).SetFailed)
}

func (r *Resolver) Enable(ctx context.Context, args struct{ ID graphql.ID }) (*cardResolver, error) {
	return r.cardOp(ctx, "enable", args.ID, (*service.CardService).Enable)
}

func (r *Resolver) Disable(ctx context.Context, args struct{ ID graphql.ID }) (*cardResolver, error) {
	return r.cardOp(ctx, "disable", args.ID, (*service.CardService).Disable)
}

type autoSaveInput struct {
	ID       *graphql.ID
	Prompt   string
	Solution string
}

func (r *Resolver) WriteAutoSave(ctx context.Context, args struct{ Card autoSaveInput }) (bool, error) {
	if _, err := r.authorize(ctx); err != nil {
		return false, r.clientError(ctx, "writeAutoSave", err)
	}
	draft := domain.Draft{Prompt: args.Card.Prompt, Solution: args.Card.Solution}
	if args.Card.ID != nil {
		draft.ID = string(*args.Card.ID)
	}
	if err := r.cards.WriteAutoSave(ctx, draft); err != nil {
		return false, r.clientError(ctx, "writeAutoSave", err)
	}
	return true, nil
}

func (r *Resolver) DeleteAutoSave(ctx context.Context) (bool, error) {
	if _, err := r.authorize(ctx); err != nil {
		return false, r.clientError(ctx, "deleteAutoSave", err)
	}
	if err := r.cards.DeleteAutoSave(ctx); err != nil {
		return false, r.clientError(ctx, "deleteAutoSave", err)
	}
	return true, nil
}
