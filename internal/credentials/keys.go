package credentials

import (
	"fmt"
)

// Entry addresses one secret: the service it is filed under and its key.
type Entry struct {
	Service string
	Key     string
}

func (e Entry) String() string {
	return e.Service + "/" + e.Key
}

// Keys names the secret store entries of one account on one host. Auth
// tokens live under the "<app>_auth_token" service and shard ids under
// "<app>_shard_id"; the key is "<app>_<host>_<userID>", extended with the
// linked notebook guid for linked notebook credentials.
type Keys struct {
	App    string
	Host   string
	UserID int32
}

func (k Keys) AuthToken() Entry {
	return Entry{Service: k.App + "_auth_token", Key: k.account()}
}

func (k Keys) ShardID() Entry {
	return Entry{Service: k.App + "_shard_id", Key: k.account()}
}

func (k Keys) LinkedNotebookAuthToken(guid string) Entry {
	return Entry{Service: k.App + "_auth_token", Key: k.account() + "_LinkedNotebookAuthToken_" + guid}
}

func (k Keys) LinkedNotebookShardID(guid string) Entry {
	return Entry{Service: k.App + "_shard_id", Key: k.account() + "_LinkedNotebookShardId_" + guid}
}

func (k Keys) account() string {
	return fmt.Sprintf("%s_%s_%d", k.App, k.Host, k.UserID)
}
