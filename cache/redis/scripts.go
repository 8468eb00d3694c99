package redis

import "github.com/redis/go-redis/v9"

// The stats hash holds the lookup counters ("gets", "hits") and the summed
// record size of the map ("bytes"). Every script that writes or deletes an
// entry keeps "bytes" in step, so statistics never walk the map.

// getScript reads the encoded tile and counts the lookup on the server.
// KEYS[1] entry hash, KEYS[2] stats hash.
var getScript = redis.NewScript(`
local data = redis.call('HGET', KEYS[1], 'data')
redis.call('HINCRBY', KEYS[2], 'gets', 1)
if data then
	redis.call('HINCRBY', KEYS[2], 'hits', 1)
end
return data
`)

// putScript writes an entry and adjusts the byte count by the size delta.
// KEYS[1] entry hash, KEYS[2] stats hash; ARGV layer, size, data.
var putScript = redis.NewScript(`
local old = tonumber(redis.call('HGET', KEYS[1], 'size') or '0')
redis.call('HSET', KEYS[1], 'layer', ARGV[1], 'size', ARGV[2], 'data', ARGV[3])
redis.call('HINCRBY', KEYS[2], 'bytes', tonumber(ARGV[2]) - old)
return 1
`)

// removeScript deletes one entry. KEYS[1] entry hash, KEYS[2] stats hash.
// Returns 1 when the entry existed.
var removeScript = redis.NewScript(`
local size = redis.call('HGET', KEYS[1], 'size')
local removed = redis.call('DEL', KEYS[1])
if size then
	redis.call('HINCRBY', KEYS[2], 'bytes', -tonumber(size))
end
return removed
`)

// removeLayerScript deletes every entry whose layer field matches. The
// predicate runs on the server, so bulk invalidation is one round trip.
// KEYS[1] stats hash; ARGV[1] entry key pattern, ARGV[2] layer name.
// Returns the removed count.
var removeLayerScript = redis.NewScript(`
local removed = 0
local freed = 0
for _, key in ipairs(redis.call('KEYS', ARGV[1])) do
	local entry = redis.call('HMGET', key, 'layer', 'size')
	if entry[1] == ARGV[2] then
		redis.call('DEL', key)
		removed = removed + 1
		freed = freed + tonumber(entry[2] or '0')
	end
end
redis.call('HINCRBY', KEYS[1], 'bytes', -freed)
return removed
`)

// clearScript deletes every entry of the map and zeroes the byte count.
// KEYS[1] stats hash; ARGV[1] entry key pattern.
var clearScript = redis.NewScript(`
local removed = 0
for _, key in ipairs(redis.call('KEYS', ARGV[1])) do
	redis.call('DEL', key)
	removed = removed + 1
end
redis.call('HSET', KEYS[1], 'bytes', 0)
return removed
`)

// statsScript returns {hits, gets, bytes}. KEYS[1] stats hash.
var statsScript = redis.NewScript(`
local v = redis.call('HMGET', KEYS[1], 'hits', 'gets', 'bytes')
return {tonumber(v[1] or '0'), tonumber(v[2] or '0'), tonumber(v[3] or '0')}
`)
