package crypto

// KeyProvider отдаёт активный сессионный ключ.
// Реализуется auth.Session; без аутентификации возвращает ошибку.
type KeyProvider interface {
	Key() ([]byte, error)
}

// emptySentinel — обратимая подмена пустой строки: GCM-шифр не принимает
// пустой плейнтекст. Подстановка и обратное отображение живут ТОЛЬКО здесь,
// на всех путях записи и чтения — расхождение представлений "пусто"
// в хранилище недопустимо.
const emptySentinel = " "

// SaltProvider отдаёт соль vault-а (CredentialRecord.salt); она появляется
// только после первичной установки пароля, поэтому запрашивается лениво.
type SaltProvider interface {
	Salt() ([]byte, error)
}

// FieldCodec шифрует и расшифровывает отдельные поля заметки
// сессионным ключом.
type FieldCodec struct {
	keys  KeyProvider
	salts SaltProvider
}

// NewFieldCodec создаёт кодек; соль vault-а переносится в каждый конверт.
func NewFieldCodec(keys KeyProvider, salts SaltProvider) *FieldCodec {
	return &FieldCodec{keys: keys, salts: salts}
}

// EncryptField шифрует значение поля. Пустая строка заменяется сентинелом.
func (c *FieldCodec) EncryptField(plaintext string) ([]byte, error) {
	key, err := c.keys.Key()
	if err != nil {
		return nil, err
	}
	salt, err := c.salts.Salt()
	if err != nil {
		return nil, err
	}
	if plaintext == "" {
		plaintext = emptySentinel
	}
	return Seal(key, salt, []byte(plaintext))
}

// DecryptField расшифровывает поле; результат, равный ровно сентинелу,
// отображается обратно в пустую строку.
func (c *FieldCodec) DecryptField(envelope []byte) (string, error) {
	key, err := c.keys.Key()
	if err != nil {
		return "", err
	}
	plain, err := Open(key, envelope)
	if err != nil {
		return "", err
	}
	if string(plain) == emptySentinel {
		return "", nil
	}
	return string(plain), nil
}
