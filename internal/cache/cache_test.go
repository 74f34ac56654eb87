package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client, time.Minute, time.Hour), mr
}

type product struct {
	Name  string `json:"name"`
	Price string `json:"price"`
}

func TestGetSetJSON(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	key := ProductsKey("coffee", false)

	var got []product
	found, err := c.GetJSON(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, found)

	want := []product{{Name: "Latte", Price: "4.50"}}
	require.NoError(t, c.SetJSON(ctx, key, want))

	found, err = c.GetJSON(ctx, key, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, got)

	mr.FastForward(2 * time.Minute)
	found, err = c.GetJSON(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, found, "entry should expire after catalog TTL")
}

func TestInvalidateCatalog(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetJSON(ctx, ProductsKey("", false), []product{}))
	require.NoError(t, c.SetJSON(ctx, ProductsKey("food", true), []product{}))
	require.NoError(t, c.SetJSON(ctx, CategoriesKey(), []string{"food"}))
	require.NoError(t, mr.Set("unrelated", "x"))

	require.NoError(t, c.InvalidateCatalog(ctx))

	assert.False(t, mr.Exists(ProductsKey("", false)))
	assert.False(t, mr.Exists(ProductsKey("food", true)))
	assert.False(t, mr.Exists(CategoriesKey()))
	assert.True(t, mr.Exists("unrelated"))
}

func TestIdempotencyFlow(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	_, found, err := c.LookupIdempotentResult(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, found)

	owned, err := c.ClaimIdempotencyKey(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, owned)

	owned, err = c.ClaimIdempotencyKey(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, owned, "second claim must fail")

	_, found, err = c.LookupIdempotentResult(ctx, "k1")
	assert.True(t, found)
	assert.ErrorIs(t, err, ErrIdempotencyInFlight)

	require.NoError(t, c.StoreIdempotentResult(ctx, "k1", []byte(`{"id":"1"}`)))
	body, found, err := c.LookupIdempotentResult(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"id":"1"}`, string(body))
}

func TestReleaseIdempotencyKey(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	_, err := c.ClaimIdempotencyKey(ctx, "k2")
	require.NoError(t, err)
	require.NoError(t, c.ReleaseIdempotencyKey(ctx, "k2"))

	owned, err := c.ClaimIdempotencyKey(ctx, "k2")
	require.NoError(t, err)
	assert.True(t, owned)
}

func TestNilCacheIsDisabled(t *testing.T) {
	var c *Cache
	ctx := context.Background()

	var v []product
	found, err := c.GetJSON(ctx, CategoriesKey(), &v)
	assert.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, c.SetJSON(ctx, CategoriesKey(), v))
	assert.NoError(t, c.InvalidateCatalog(ctx))

	owned, err := c.ClaimIdempotencyKey(ctx, "k")
	assert.NoError(t, err)
	assert.True(t, owned)
	_, found, err = c.LookupIdempotentResult(ctx, "k")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, c.Close())
}

func TestConnectEmptyAddr(t *testing.T) {
	c, err := Connect(context.Background(), "", "", 0, time.Minute, time.Minute)
	require.NoError(t, err)
	assert.Nil(t, c)
}
