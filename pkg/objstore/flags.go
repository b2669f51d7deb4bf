package objstore

import "os"

const fileOpenFlags = os.O_CREATE | os.O_WRONLY
